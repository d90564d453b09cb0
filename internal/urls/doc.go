// Package urls holds the reference URLs printed in onvifctl help and
// troubleshooting output, so they can be updated in one place.
//
// Usage:
//
//	import "github.com/muurk/onvifctl/internal/urls"
//
//	fmt.Printf("See: %s\n", urls.CoreSpecification)
package urls
