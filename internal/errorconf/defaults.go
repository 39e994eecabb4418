package errorconf

// BaseType is the error type used when no status-specific entry applies.
const BaseType = "base"

// DefaultTemplate is the template callers fall back to when no entry names one.
const DefaultTemplate = "errors/default.html"

// DetailsPlaceholder is substituted for absent response details.
const DetailsPlaceholder = "No additional details provided."

// homepage hints used by the built-in entries.
const (
	redirectHomepage = "Please return to the homepage."
	redirectGeneric  = "Please return to our home page"
)

// Builtin is the process-wide table of default error settings. Overrides
// loaded from configuration are consulted first; see Resolver.
//
// No entry carries a template name; callers supply DefaultTemplate as the
// final fallback.
var Builtin = Table{
	BaseType: builtin(500, "An error occurred", "Error", "An Error Occurred", "Something went wrong.", redirectHomepage),
	"400":    builtin(400, "Bad Request", "Bad Request", "400 Error", "Sorry, your request could not be processed.", redirectHomepage),
	"401":    builtin(401, "Unauthorized", "Unauthorized", "401 Error", "Authorization is required to access this page.", redirectGeneric),
	"403":    builtin(403, "Permission Denied", "Forbidden", "403 Error", "You do not have permission to access this page.", redirectGeneric),
	"404":    builtin(404, "Page Not Found", "404 Error", "Page Not Found", "Sorry, the page you are looking for does not exist.", "Return to the homepage."),
	"405":    builtin(405, "Method Not Allowed", "Method Not Allowed", "405 Error", "The method is not allowed for the requested URL.", redirectGeneric),
	"408":    builtin(408, "Request Timeout", "Request Timeout", "408 Error", "The server timed out waiting for the request.", redirectGeneric),
	"410":    builtin(410, "Gone", "Gone", "410 Error", "The requested resource is no longer available on this server.", redirectGeneric),
	"429":    builtin(429, "Too Many Requests", "Too Many Requests", "429 Error", "You have sent too many requests in a given amount of time.", redirectGeneric),
	"500":    builtin(500, "Server Error", "Internal Server Error", "500 Error", "An unexpected error occurred on the server.", redirectGeneric),
}

// DefaultContext is the template context used when neither the override
// table nor the built-in table has details for an error type.
func DefaultContext() map[string]any {
	return map[string]any{
		"title":    "Error",
		"header":   "An Error Occurred",
		"message":  "Something went wrong.",
		"redirect": redirectHomepage,
	}
}

func builtin(status int, msg, title, header, message, redirect string) Entry {
	logErrors := true
	return Entry{
		StatusCode:     &status,
		DefaultMessage: &msg,
		DefaultDetails: map[string]any{
			"title":    title,
			"header":   header,
			"message":  message,
			"redirect": redirect,
		},
		LogErrors: &logErrors,
	}
}
