// Package urls holds the documentation links printed by the CLI, so they
// can be updated in one place before a release.
//
//	fmt.Printf("See %s for the answer-file format\n", urls.Wizards)
package urls
