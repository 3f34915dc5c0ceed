// Package profile loads YAML settings that tune a mapper.Registry.
//
// A profile overrides registry configuration and adds ignore rules to
// rules registered in code:
//
//	version: "1"
//	registry:
//	  max_expansion_passes: 16
//	  strict_bindings: true
//	maps:
//	  - source: catalog.Person
//	    target: catalog.PersonDTO
//	    ignore: [Secret, Internal]
//
// Type names are either short ("catalog.Person") or fully qualified
// ("example.com/app/catalog.Person"). ignore accepts a single name or a
// list.
package profile
