// Package sanitizer normalizes free-text input before validation and storage.
//
// All functions are idempotent - applying them multiple times produces the
// same result - and handle invalid input gracefully by returning empty
// strings rather than errors. It is used for admin resolution notes,
// cancellation reasons and other operator-entered text.
package sanitizer
