// Package cli provides the interactive taskdesk command-line client.
//
// It wires configuration, the local session database, the backend API
// client and an interactive REPL. Typical flow: restore the persisted
// session, start a background session watcher, then execute user
// commands until "exit".
//
// Key features:
//   - login / logout / whoami
//   - users, useradd, useredit, userdel (Administrators)
//   - tasks, taskadd, taskedit, taskdel, assign, status
//   - stats
//
// Commands a role may not use are hidden from help and refused on entry.
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli
