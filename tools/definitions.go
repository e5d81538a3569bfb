package tools

import (
	"taskpilot/core"
)

// Tool and schema names shared between the controller and the extraction
// layer.
const (
	RoutingToolName  = "UpdateMemory"
	PatchDocToolName = "PatchDoc"
	ProfileSchema    = "Profile"
	TodoSchema       = "ToDo"
)

// Routing decision values carried in the UpdateMemory call.
const (
	UpdateUser         = "user"
	UpdateTodo         = "todo"
	UpdateInstructions = "instructions"
)

// RoutingTool is the single tool offered during the assistant step. The
// model calls it at most once per turn to pick which memory collection to
// update; no call means the turn ends.
func RoutingTool() core.ToolDefinition {
	return core.ToolDefinition{
		ToolName:        RoutingToolName,
		ToolDescription: "Decision on what memory type to update.",
		InputSchema: ObjectSchema(map[string]interface{}{
			"update_type": StringEnumProperty(
				"Which memory collection to update based on the conversation.",
				UpdateUser, UpdateTodo, UpdateInstructions,
			),
		}, "update_type"),
	}
}

// PatchDocTool is offered during extraction whenever existing records are
// present. The model targets an existing record id and either supplies
// patch operations or, with an empty patches list, declares that nothing
// about the record needs to change.
func PatchDocTool() core.ToolDefinition {
	return core.ToolDefinition{
		ToolName: PatchDocToolName,
		ToolDescription: "Update an existing document by id with JSON Patch operations. " +
			"Send an empty patches list to state that the referenced document needs no changes.",
		InputSchema: ObjectSchema(map[string]interface{}{
			"json_doc_id":   StringProperty("The id of the existing document to update."),
			"planned_edits": StringProperty("A short plan describing the edits, or why no changes are needed."),
			"patches": ArrayProperty("JSON Patch operations to apply. Empty means no changes.",
				ObjectSchema(map[string]interface{}{
					"op":    StringEnumProperty("The operation to perform.", "add", "replace", "remove"),
					"path":  StringProperty("JSON pointer to the field, e.g. /deadline or /solutions/-"),
					"value": AnyProperty("The new value for add and replace operations."),
				}, "op", "path"),
			),
		}, "json_doc_id", "planned_edits", "patches"),
	}
}

// ProfileTool is the structured schema for user profile extraction.
func ProfileTool() core.ToolDefinition {
	return core.ToolDefinition{
		ToolName:        ProfileSchema,
		ToolDescription: "This is a profile of the user you are interacting with.",
		InputSchema: ObjectSchema(map[string]interface{}{
			"name":     StringProperty("The user's name."),
			"age":      IntegerProperty("The user's age."),
			"location": StringProperty("The user's location."),
			"job":      StringProperty("The user's job."),
			"connections": StringArrayProperty(
				"Personal connections of the user, such as family members, friends, or coworkers."),
			"interests": StringArrayProperty("The user's interests or hobbies."),
		}),
	}
}

// TodoTool is the structured schema for task extraction.
func TodoTool() core.ToolDefinition {
	return core.ToolDefinition{
		ToolName:        TodoSchema,
		ToolDescription: "ToDo item for the user to complete.",
		InputSchema: ObjectSchema(map[string]interface{}{
			"task":             StringProperty("The task to be completed."),
			"time_to_complete": StringProperty("Estimated time to complete the task (minutes)."),
			"deadline":         StringProperty("When the task needs to be completed by, if applicable."),
			"solutions": WithMinItems(StringArrayProperty(
				"List of specific, actionable solutions, such as concrete ideas, service providers, "+
					"or options relevant to completing the task."), 1),
			"status": WithDefault(StringEnumProperty("Current status of the task.",
				string(core.StatusNotStarted), string(core.StatusInProgress),
				string(core.StatusDone), string(core.StatusArchived)),
				string(core.StatusNotStarted)),
		}, "task", "solutions"),
	}
}
