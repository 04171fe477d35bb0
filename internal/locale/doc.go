// Package locale holds the English and Italian user-facing strings and
// picks one per request from ?lang= or Accept-Language.
package locale
