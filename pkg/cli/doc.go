// Package cli implements usercenter-admin, the operator command line for the
// account store.
//
// Every command reads the same configuration as the server: the YAML file
// named by -config or USERCENTER_CONFIG_FILE, then USERCENTER_* variables.
//
// # Commands
//
// migrate: create the accounts schema
//
//	usercenter-admin migrate -config /etc/usercenter.yaml
//
// create-admin: create an administrator with the default password
//
//	usercenter-admin create-admin -account operator -name "Operator"
//
// set-role: promote, demote or ban an account
//
//	usercenter-admin set-role -id 42 -role ban
//
// list: page through accounts
//
//	usercenter-admin list -role admin -page 1 -size 20
package cli
