// Package validate runs the post-generation checks that gate finalization.
//
// Every check runs against one snapshot of the project tree taken at the
// start of Validate, and every check runs even when an earlier one failed,
// so a Report always lists the complete picture.
package validate
