// Package audit keeps the trail of lock commands in the audit_logs table.
package audit
