// Package stageerr defines the error taxonomy shared by every staging package.
//
// All errors raised by the engine are fatal for the job that produced them:
// nothing in this module retries. Callers match categories with errors.Is
// against the sentinels and recover details with errors.As.
package stageerr
