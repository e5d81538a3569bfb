package tools

// Schema helpers for building JSON Schema definitions.

// ObjectSchema creates an object schema with the given properties.
func ObjectSchema(properties map[string]interface{}, required ...string) map[string]interface{} {
	schema := map[string]interface{}{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

// StringProperty creates a string property with optional description.
func StringProperty(description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": description,
	}
}

// StringEnumProperty creates a string property with allowed values.
func StringEnumProperty(description string, values ...string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": description,
		"enum":        values,
	}
}

// IntegerProperty creates an integer property with optional description.
func IntegerProperty(description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "integer",
		"description": description,
	}
}

// ArrayProperty creates an array property with the given item type.
func ArrayProperty(description string, itemType map[string]interface{}) map[string]interface{} {
	return map[string]interface{}{
		"type":        "array",
		"description": description,
		"items":       itemType,
	}
}

// StringArrayProperty creates an array-of-strings property.
func StringArrayProperty(description string) map[string]interface{} {
	return ArrayProperty(description, map[string]interface{}{"type": "string"})
}

// AnyProperty creates a property that accepts any JSON value.
func AnyProperty(description string) map[string]interface{} {
	return map[string]interface{}{
		"description": description,
	}
}

// WithMinItems constrains an array property to a minimum length.
func WithMinItems(property map[string]interface{}, min int) map[string]interface{} {
	result := make(map[string]interface{}, len(property)+1)
	for k, v := range property {
		result[k] = v
	}
	result["minItems"] = min
	return result
}

// WithDefault records a default value on a property.
func WithDefault(property map[string]interface{}, value interface{}) map[string]interface{} {
	result := make(map[string]interface{}, len(property)+1)
	for k, v := range property {
		result[k] = v
	}
	result["default"] = value
	return result
}
