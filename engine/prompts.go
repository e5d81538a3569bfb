package engine

import (
	"fmt"
	"time"
)

const assistantSystemTemplate = `You are a helpful task assistant.

You are a companion to the user, helping them keep track of their ToDo list.

You have a long term memory which keeps track of three things:
1. The user's profile (general information about them)
2. The user's ToDo list
3. General instructions for updating the ToDo list

Here is the current User Profile (may be empty if no information has been collected yet):
<user_profile>
%s
</user_profile>

Here is the current ToDo List (may be empty if no tasks have been added yet):
<todo>
%s
</todo>

Here are the current user-specified preferences for updating the ToDo list (may be empty if no preferences have been specified yet):
<instructions>
%s
</instructions>

Here are your instructions for reasoning about the user's messages:

1. Reason carefully about the user's messages as presented below.

2. Decide whether any of your long-term memory should be updated:
- If personal information was provided about the user, update the user's profile by calling UpdateMemory tool with type "user"
- If tasks are mentioned, update the ToDo list by calling UpdateMemory tool with type "todo"
- If the user has specified preferences for how to update the ToDo list, update the instructions by calling UpdateMemory tool with type "instructions"

3. Tell the user that you have updated your memory, if appropriate:
- Do not tell the user you have updated the user's profile
- Tell the user when you update the ToDo list
- Do not tell the user that you have updated instructions

4. Err on the side of updating the ToDo list. No need to ask for explicit permission.

5. Respond naturally to the user after a tool call was made to save memories, or if no tool call was made.`

// assistantSystem renders the assistant-step system context from the three
// memory collections. Empty collections render as "None" so the model sees
// an explicit absence rather than a blank section.
func assistantSystem(profile, todos, instructions string) string {
	if profile == "" {
		profile = "None"
	}
	if todos == "" {
		todos = "None"
	}
	if instructions == "" {
		instructions = "None"
	}
	return fmt.Sprintf(assistantSystemTemplate, profile, todos, instructions)
}

const reconcileInstructionTemplate = `Reflect on the following interaction.

Use the provided tools to retain any necessary memories about the user.

Use parallel tool calling to handle updates and insertions simultaneously.

System Time: %s`

// reconcileInstruction is the reflection instruction placed ahead of the
// extraction protocol. The timestamp lets the model resolve relative dates.
func reconcileInstruction(now time.Time) string {
	return fmt.Sprintf(reconcileInstructionTemplate, now.Format(time.RFC3339))
}

const rewriteInstructionsTemplate = `Reflect on the following interaction.

Based on this interaction, update your instructions for how to update ToDo list items.

Use any feedback from the user to update how they like to have items added, etc.

Your current instructions are:

<current_instructions>
%s
</current_instructions>`

// rewriteInstructionsSystem renders the system context for the free-text
// instruction rewrite. current is the prior instructions text or "None".
func rewriteInstructionsSystem(current string) string {
	if current == "" {
		current = "None"
	}
	return fmt.Sprintf(rewriteInstructionsTemplate, current)
}

// instructionsUpdateRequest is appended as the final user message when
// rewriting instructions, prompting the model to produce the new text.
const instructionsUpdateRequest = "Please update the instructions based on the conversation"
