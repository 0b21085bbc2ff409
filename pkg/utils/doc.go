// Package utils provides small helpers shared across simple-auth packages:
// SQL null conversions for optional columns, email masking for log lines, and
// the Clock abstraction that lets tests pin "now".
//
//	clock := utils.NewFixedClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
//	clock.Advance(10 * time.Minute)
package utils
