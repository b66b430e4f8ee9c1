// Package serialize renders entities into ordered, plain-data objects
// following a declarative Structure.
//
// A Structure maps field names to rules. Include copies the attribute,
// AsIdentifier emits the primary key of the related entity, AsString its
// display string, and a nested *Structure serializes the related entity
// (or each entity of a to-many relation) recursively:
//
//	post := serialize.Struct("title", "body").
//		Set("author", serialize.Struct("name")).
//		Set("tags", serialize.AsString)
//
//	obj, err := serialize.Serialize(p, post)
//
// The output keeps the declaration order of the structure. A Serializer
// associates structures with entity types so handlers can call Dump
// without naming one.
package serialize
