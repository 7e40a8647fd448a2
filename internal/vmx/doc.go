// Package vmx parses VMware VMX virtual machine descriptors.
//
// A VMX file is a flat, line-oriented, case-insensitive key/value
// format. Device entries encode their coordinates in the key itself:
// "scsi0:1.filename" is attribute "filename" of unit 1 on controller 0
// of the scsi device class. Parsing is pure: the Document only reflects
// the input bytes and preserves first-seen ordering so that downstream
// output is deterministic.
package vmx
