package core

// Profile is the durable profile record kept for each user.
// List fields accumulate across updates; reconciliation may patch entries
// but duplicates are not merged automatically.
type Profile struct {
	// Name is the user's name.
	Name string `json:"name,omitempty"`

	// Age is the user's age.
	Age int `json:"age,omitempty"`

	// Location is the user's location.
	Location string `json:"location,omitempty"`

	// Job is the user's job.
	Job string `json:"job,omitempty"`

	// Connections are personal connections of the user, such as family
	// members, friends, or coworkers.
	Connections []string `json:"connections"`

	// Interests are the user's interests or hobbies.
	Interests []string `json:"interests"`
}

// TodoStatus is the lifecycle state of a task.
type TodoStatus string

const (
	StatusNotStarted TodoStatus = "not started"
	StatusInProgress TodoStatus = "in progress"
	StatusDone       TodoStatus = "done"
	StatusArchived   TodoStatus = "archived"
)

// ToDo is one task record in the user's task list.
type ToDo struct {
	// Task is the task to be completed.
	Task string `json:"task"`

	// TimeToComplete is the estimated time to complete the task (minutes).
	TimeToComplete string `json:"time_to_complete,omitempty"`

	// Deadline is when the task needs to be completed by, if applicable.
	Deadline string `json:"deadline,omitempty"`

	// Solutions are specific, actionable options for completing the task.
	// A well-formed record carries at least one entry.
	Solutions []string `json:"solutions"`

	// Status defaults to "not started".
	Status TodoStatus `json:"status"`
}

// InstructionsKey is the fixed record id of the single free-text behavioral
// instructions memory. The record is overwritten whole on every update.
const InstructionsKey = "user_instructions"

// Instructions is the free-text behavioral instructions record.
type Instructions struct {
	Memory string `json:"memory"`
}
