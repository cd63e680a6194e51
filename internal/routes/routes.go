// Package routes declares the logical paths shared by the pipelines and
// the HTTP layer. Pipelines hand these to the navigation callback; the
// HTTP layer maps them onto redirects.
package routes

const (
	Login   = "/"
	Bills   = "/bills"
	NewBill = "/bills/new"
)
