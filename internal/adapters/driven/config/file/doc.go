// Package file provides file-based implementations of driven port interfaces.
// These adapters read data from the local filesystem.
//
// Adapters:
//   - ProfileStore: profiles from a YAML or TOML file, with environment
//     defaults and an optional fsnotify watcher
package file
