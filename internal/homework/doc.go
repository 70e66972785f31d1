// Package homework holds the review-status domain: the homework record as
// returned by the review API, the response shape checks, and the translation
// of a status code into the chat message.
//
// Failures are reported as *Error values carrying a Kind, so the poll loop can
// branch on what went wrong without string matching.
package homework
