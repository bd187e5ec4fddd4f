package config

// ///////////////////////////////////////////////
// Documentation Types
// ///////////////////////////////////////////////

// FieldDoc annotates one config field in the generated config.default.toml.
type FieldDoc struct {
	// Comment is written above the field.
	Comment string

	// Alternatives are written as commented-out lines below the field.
	Alternatives []string
}

// ///////////////////////////////////////////////
// Field Documentation Map
// ///////////////////////////////////////////////

// ConfigDocs maps dot-separated TOML paths (e.g. "display.assets.small_text")
// to their documentation. Every field of [Config] must have an entry.
var ConfigDocs = map[string]FieldDoc{
	// ── Root ──────────────────────────────────────────────────────
	"version": {
		Comment: "Config schema version. Do not edit.",
	},
	"enabled": {
		Comment: "Set to false to stop nvimcord from connecting.\n:RpcEnable and :RpcDisable rewrite this line.",
	},
	"id": {
		Comment: "Discord application ID used to log in.\nUse your own application to upload custom images.",
	},
	"hide_startup_message": {
		Comment: "Hide the \"Logging into RPC...\" and \"Successfully connected\" messages.",
	},
	"ignore_workspaces": {
		Comment: "Regular expressions tested against the workspace name (the last\npath segment of the workspace root). A match prevents login.\nMatching is case-sensitive and unanchored; use ^ and $ for exact names.",
		Alternatives: []string{
			`ignore_workspaces = ["^secret$", "client-.*"]`,
		},
	},

	// ── Workspace ────────────────────────────────────────────────
	"workspace.root_markers": {
		Comment: "Files or directories that mark a workspace root. nvimcord walks up\nfrom the current buffer and stops at the first directory containing one.\nFalls back to Neovim's working directory.",
	},

	// ── Display ──────────────────────────────────────────────────
	"display.details": {
		Comment: "Presence card templates. details = top line, state = bottom line.\nVariables: {file}, {file_path}, {dir}, {workspace}, {language},\n{line}, {lines}, {branch}, {git_owner}, {git_repo}",
	},
	"display.details_idle": {
		Comment: "Top line while idle (see behavior.idle_minutes)",
	},
	"display.details_no_file": {
		Comment: "Top line when the current buffer has no file (e.g. a scratch buffer)",
	},
	"display.state": {},
	"display.state_no_workspace": {
		Comment: "Bottom line when no workspace root is found",
	},
	"display.state_idle": {},

	// ── Assets ───────────────────────────────────────────────────
	"display.assets.large_text": {
		Comment: "Image keys must match assets uploaded to the Discord application.\nlarge_text is a template and supports the variables above.",
	},
	"display.assets.idle_image": {},
	"display.assets.idle_text": {},
	"display.assets.small_image": {},
	"display.assets.small_text": {},
	"display.assets.show_language_icon": {
		Comment: "Show the language of the current file as the large image.\nWhen false the small image key is used for the large image.",
	},

	// ── Buttons ──────────────────────────────────────────────────
	"display.buttons.show_repo_button": {
		Comment: "Show a button linking to the workspace's git origin.",
	},
	"display.buttons.repo_button_label": {},
	"display.buttons.custom_button_label": {
		Comment: "Optional second button. Label and url must be set together.",
		Alternatives: []string{
			`custom_button_label = "My Website"`,
		},
	},
	"display.buttons.custom_button_url": {
		Alternatives: []string{
			`custom_button_url = "https://example.com"`,
		},
	},

	// ── Timestamps ───────────────────────────────────────────────
	"display.timestamps.mode": {
		Comment: "What the elapsed timer counts. Options: \"workspace\", \"file\", \"none\"\n  workspace: time since nvimcord connected\n  file:      time since the current file was opened\n  none:      no timer",
		Alternatives: []string{
			`mode = "file"`,
			`mode = "none"`,
		},
	},

	// ── Privacy ──────────────────────────────────────────────────
	"privacy.hide_file_name": {
		Comment: "Replace every file name with hidden_file_text.",
	},
	"privacy.hidden_file_text": {},
	"privacy.hide_workspace_name": {
		Comment: "Replace every workspace name with hidden_workspace_text.",
	},
	"privacy.hidden_workspace_text": {},
	"privacy.ignore": {
		Comment: "Glob patterns (** supported) matched against the full workspace path.\nNo presence is sent while a matching workspace is open.",
		Alternatives: []string{
			`ignore = ["/home/*/secret/**", "**/client-*"]`,
		},
	},
	"privacy.overrides": {
		Comment: "Per-path overrides that hide the workspace name.",
	},

	// ── Behavior ─────────────────────────────────────────────────
	"behavior.idle_minutes": {
		Comment: "Minutes without cursor movement or edits before the card goes idle. 0 disables.",
	},
	"behavior.idle_mode": {
		Comment: "Idle behavior. Options: \"idle_text\", \"keep\"\n  idle_text: show details_idle, state_idle and idle_image\n  keep:      stop sending updates and leave the last card",
		Alternatives: []string{
			`idle_mode = "keep"`,
		},
	},

	// ── Log ──────────────────────────────────────────────────────
	"log.level": {
		Comment: "Log level. Options: \"trace\", \"debug\", \"info\", \"warn\", \"error\"",
		Alternatives: []string{
			`level = "debug"`,
		},
	},
	"log.max_size_mb": {
		Comment: "Rotate nvimcord.log after this many megabytes.",
	},
}
