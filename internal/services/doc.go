// Package services defines shared error classification for external
// integrations. Subpackages wrap individual remote services.
package services
