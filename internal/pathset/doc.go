// Package pathset implements ordered-list operations on colon-delimited
// search-path strings such as PATH and GEM_PATH.
//
// Elements are compared by exact string match. No element is ever cleaned,
// resolved or normalised: "/usr/bin" and "/usr/bin/" are different entries,
// and empty elements (from "a::b") survive every operation untouched.
package pathset
