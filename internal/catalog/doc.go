// Package catalog holds the static option tables the configuration wizards
// select from, the numeric encodings the gateway backend expects, and the
// built-in device templates.
//
// Wizard fields store option values as strings. Conversion to backend codes
// happens at payload build time:
//
//	code, _ := catalog.SourceCode(catalog.SourceModbus) // 3
//	bit, _ := catalog.BitCode(catalog.BitNone)          // nil, sent as null
package catalog
