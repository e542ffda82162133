// Package data holds the typed containers and records that eta serializes.
//
// # Records
//
// A record is a plain Go struct whose field contract is declared with
// `record` struct tags:
//
//	type LabeledVideoRecord struct {
//		VideoPath string           `record:"video_path,required"`
//		Label     string           `record:"label,required"`
//		Group     Optional[string] `record:"group,optional"`
//	}
//
// Required fields must be present when a record is built from a map.
// Optional fields use Optional[T], which keeps "not set" apart from an
// explicit null; unset optionals are invisible to Field and never serialized.
// Excluded fields live on the struct but are never serialized. Unexported
// fields are private and ignored.
//
// # Containers
//
// Container[E] is an ordered collection of one element type. Its map form
// carries the container class name and the element class name, so Load can
// rebuild the concrete container and element types from the map alone:
//
//	{"_CLS": "eta.core.geometry.LabeledPointContainer",
//	 "points": [{"_DATA_CLS": "eta.core.geometry.LabeledPoint", ...}]}
//
// Concrete containers and element types register themselves from package
// init functions (RegisterContainer, RegisterElement). Records is the one
// container whose element type is chosen per instance.
//
// Containers, records, and their elements are not safe for concurrent
// mutation; callers that share an instance across goroutines must lock.
package data
