package tools

import (
	"github.com/shikhr/opdroid/internal/llm"
)

// Tool names in the catalog. The set is closed: the dispatcher rejects
// anything else.
const (
	ToolTap             = "tap"
	ToolTapSequence     = "tap_sequence"
	ToolSwipe           = "swipe"
	ToolInputText       = "input_text"
	ToolPressHome       = "press_home"
	ToolPressBack       = "press_back"
	ToolPressEnter      = "press_enter"
	ToolPressRecentApps = "press_recent_apps"
	ToolLaunchApp       = "launch_app"
	ToolWait            = "wait"
	ToolTaskComplete    = "task_complete"
	ToolTaskImpossible  = "task_impossible"
)

// Sentinel prefixes on the result strings of the two terminal tools.
// The agent loop watches for these to end a run.
const (
	CompletePrefix   = "TASK_COMPLETE: "
	ImpossiblePrefix = "TASK_IMPOSSIBLE: "
)

// Defaults applied when the model omits an optional numeric argument.
const (
	defaultTapDelayMS      = 500
	defaultSwipeDurationMS = 300
)

// Definitions returns the function-calling schema for the full catalog,
// in the order it is presented to the model.
func Definitions() []llm.Tool {
	return []llm.Tool{
		llm.NewTool(ToolTap,
			"Simulates a finger tap at the specified grid cell. "+
				"The screen is overlaid with a grid where columns are labeled with letters (A, B, C, ...) "+
				"and rows are labeled with numbers (1, 2, 3, ...). Specify the cell to tap like 'E10' or 'A1'. "+
				"Use this to click buttons, icons, or any UI element.",
			llm.JSONSchema{
				Type: "object",
				Properties: map[string]llm.Property{
					"cell": {Type: "string", Description: "Grid cell to tap (e.g., 'E10', 'A1', 'I20')"},
				},
				Required: []string{"cell"},
			}),
		llm.NewTool(ToolTapSequence,
			"Taps multiple grid cells in sequence. Use this when you need to tap several buttons on the same screen. "+
				"This is more efficient than calling tap() multiple times.",
			llm.JSONSchema{
				Type: "object",
				Properties: map[string]llm.Property{
					"cells": {
						Type:        "array",
						Items:       &llm.Property{Type: "string"},
						Description: "List of grid cells to tap in order (e.g., ['B22', 'E22', 'K16', 'B22'])",
					},
					"delay_ms": {
						Type:        "number",
						Description: "Delay between taps in milliseconds (default: 500)",
						Default:     defaultTapDelayMS,
					},
				},
				Required: []string{"cells"},
			}),
		llm.NewTool(ToolSwipe,
			"Simulates a swipe gesture from one grid cell to another. "+
				"Use this to scroll through content, dismiss notifications, or navigate. "+
				"Common patterns: swipe from E15 to E5 to scroll down, swipe between columns to switch pages.",
			llm.JSONSchema{
				Type: "object",
				Properties: map[string]llm.Property{
					"start_cell": {Type: "string", Description: "Starting grid cell (e.g., 'E15')"},
					"end_cell":   {Type: "string", Description: "Ending grid cell (e.g., 'E5')"},
					"duration_ms": {
						Type:        "number",
						Description: "Duration of swipe in milliseconds (default: 300)",
						Default:     defaultSwipeDurationMS,
					},
				},
				Required: []string{"start_cell", "end_cell"},
			}),
		llm.NewTool(ToolInputText,
			"Types the specified text into the currently focused input field. "+
				"Make sure an input field is focused (by tapping it first) before calling this. "+
				"This will type the text character by character.",
			llm.JSONSchema{
				Type: "object",
				Properties: map[string]llm.Property{
					"text": {Type: "string", Description: "The text to type into the focused input field"},
				},
				Required: []string{"text"},
			}),
		llm.NewTool(ToolPressHome,
			"Presses the HOME button to return to the home screen. "+
				"Use this to exit apps or return to the launcher.",
			llm.JSONSchema{Type: "object"}),
		llm.NewTool(ToolPressBack,
			"Presses the BACK button to go back to the previous screen. "+
				"Use this to navigate backwards, close dialogs, or cancel actions.",
			llm.JSONSchema{Type: "object"}),
		llm.NewTool(ToolPressEnter,
			"Presses the ENTER key. Use this to submit forms, confirm searches, "+
				"or send messages after typing text.",
			llm.JSONSchema{Type: "object"}),
		llm.NewTool(ToolPressRecentApps,
			"Presses the RECENT APPS button to show the app switcher. "+
				"Use this to switch between recently used apps.",
			llm.JSONSchema{Type: "object"}),
		llm.NewTool(ToolLaunchApp,
			"Launches an app by its package name. "+
				"Common package names: 'com.android.settings' (Settings), "+
				"'com.google.android.youtube' (YouTube), 'com.android.chrome' (Chrome), "+
				"'com.whatsapp' (WhatsApp), 'com.google.android.gm' (Gmail).",
			llm.JSONSchema{
				Type: "object",
				Properties: map[string]llm.Property{
					"package": {Type: "string", Description: "The package name of the app to launch"},
				},
				Required: []string{"package"},
			}),
		llm.NewTool(ToolWait,
			"Wait for a specified number of seconds before taking the next action. "+
				"Use this when you need to wait for content to load, animations to complete, "+
				"or apps to start up.",
			llm.JSONSchema{
				Type: "object",
				Properties: map[string]llm.Property{
					"seconds": {Type: "number", Description: "Number of seconds to wait (can be decimal, e.g., 1.5)"},
				},
				Required: []string{"seconds"},
			}),
		llm.NewTool(ToolTaskComplete,
			"Call this when you have successfully completed the user's requested task. "+
				"Provide a brief summary of what was accomplished.",
			llm.JSONSchema{
				Type: "object",
				Properties: map[string]llm.Property{
					"summary": {Type: "string", Description: "Brief summary of what was accomplished"},
				},
				Required: []string{"summary"},
			}),
		llm.NewTool(ToolTaskImpossible,
			"Call this if you determine that the task cannot be completed. "+
				"Explain why the task is impossible or blocked.",
			llm.JSONSchema{
				Type: "object",
				Properties: map[string]llm.Property{
					"reason": {Type: "string", Description: "Explanation of why the task cannot be completed"},
				},
				Required: []string{"reason"},
			}),
	}
}
