package ecsruntime

import "github.com/TheBitDrifter/table"

// Config holds process-wide configuration: table event callbacks and
// the scheduler's default error policy.
var Config config = config{
	defaultErrorPolicy: ErrorPolicyContinue,
}

type config struct {
	tableEvents        table.TableEvents
	defaultErrorPolicy ErrorPolicy
}

// SetTableEvents configures the table event callbacks used when building
// new archetype tables.
func (c *config) SetTableEvents(te table.TableEvents) {
	c.tableEvents = te
}

// SetDefaultErrorPolicy sets the SystemScheduler error policy new
// schedulers start with.
func (c *config) SetDefaultErrorPolicy(p ErrorPolicy) {
	c.defaultErrorPolicy = p
}

// DefaultErrorPolicy returns the configured default error policy.
func (c *config) DefaultErrorPolicy() ErrorPolicy {
	return c.defaultErrorPolicy
}

// ErrorPolicy controls how a scheduler Update reacts to a failing
// system.
type ErrorPolicy int

const (
	// ErrorPolicyContinue logs and proceeds with remaining systems in
	// the stage. Default.
	ErrorPolicyContinue ErrorPolicy = iota
	// ErrorPolicyDisableAndContinue marks the offending system disabled
	// and continues.
	ErrorPolicyDisableAndContinue
	// ErrorPolicyThrow propagates the error to the caller of Update
	// after the error callback (if any) runs.
	ErrorPolicyThrow
)
