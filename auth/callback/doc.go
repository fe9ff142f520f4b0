// Package callback provides the HTTP handler for the provider's
// redirect back to the application, together with the response
// function types callers implement to finish the browser interaction
// (typically a redirect to the dashboard or back to the login page).
package callback
