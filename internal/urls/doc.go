// Package urls holds the documentation links the CLI prints, so they can be
// updated in one place.
//
//	fmt.Printf("For more information, see: %s\n", urls.Documentation)
package urls
