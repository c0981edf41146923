package model

// Type tags shared by parameter and return declarations.
const (
	TypeInteger        = "integer"
	TypeIntegerArray   = "integer[]"
	TypeString         = "string"
	TypeStringArray    = "string[]"
	TypeCharacter      = "character"
	TypeCharacterArray = "character[]"
)

// KnownType reports whether tag is part of the type vocabulary.
func KnownType(tag string) bool {
	switch tag {
	case TypeInteger, TypeIntegerArray, TypeString, TypeStringArray, TypeCharacter, TypeCharacterArray:
		return true
	}
	return false
}

// IsArrayType reports whether tag names an array type.
func IsArrayType(tag string) bool {
	return tag == TypeIntegerArray || tag == TypeStringArray || tag == TypeCharacterArray
}
