package apikit

import "reflect"

// Test-only exports for internal functions.
var (
	HasParamTags         = hasParamTags
	HasBodyField         = hasBodyField
	JSONFieldName        = jsonFieldName
	ConstraintViolations = constraintViolations
	Negotiate            = negotiate
	ToOpenAPIPath        = toOpenAPIPath
	NormalizePath        = normalizePath
	NormalizePrefix      = normalizePrefix
)

// TypeToSchema converts t with a fresh cycle guard.
func TypeToSchema(t reflect.Type) JSONSchema {
	return typeToSchema(t, make(map[reflect.Type]bool))
}
