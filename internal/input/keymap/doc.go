// Package keymap provides key binding management for the Keystorm editor.
//
// The keymap system manages the mapping between key sequences and actions.
// It supports multiple modes, filetype-specific keymaps, conditional
// bindings, and score-based precedence between matching bindings.
//
// # Key Concepts
//
// Keymap: A named collection of bindings for a specific mode or context.
//
// Binding: Maps a key sequence to an action with optional conditions.
//
// Registry: Central registry that manages all keymaps and provides lookup.
//
// # Binding Precedence
//
// When multiple bindings match a key sequence, they are ranked by a score
// (higher wins): the keymap's Priority times 100, plus the binding's
// Priority, plus 50 for a mode-specific keymap and 25 for a
// filetype-specific one. Equal scores prefer mode-specific, then
// filetype-specific keymaps; the order of matches still equal after that
// is not defined.
//
// # Key Sequence Parsing
//
// Key sequences can be specified in multiple formats:
//
//	"j"        - Single character
//	"g g"      - Multi-key sequence
//	"<C-s>"    - Ctrl+S (angle bracket notation)
//	"Ctrl+S"   - Ctrl+S (readable notation)
//	"<C-S-a>"  - Ctrl+Shift+A
//
// # Conditional Bindings
//
// Bindings can have conditions that must be met:
//
//	binding := Binding{
//	    Keys:   "<C-s>",
//	    Action: "file.save",
//	    When:   "editorTextFocus && !editorReadonly",
//	}
//
// # Usage
//
//	registry := keymap.NewRegistry()
//	registry.Register(km)
//
//	// Lookup a binding
//	ctx := &keymap.LookupContext{Mode: "normal"}
//	seq, _ := key.ParseSequence("g g")
//	binding := registry.Lookup(seq, ctx)
//	if binding != nil {
//	    // Execute binding.Action
//	}
//
//	// Check if more keys might complete a binding
//	if registry.HasPrefix(partialSeq, ctx) {
//	    // Wait for more keys
//	}
package keymap
