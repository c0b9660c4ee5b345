// Package monitor watches host health through a netdata agent and
// pushes a webhook notification when CPU, memory or load stay above
// their thresholds for a sustained period.
//
// Alerting is deliberately conservative: heat must persist for the
// configured sustain window before a notification fires, and each
// alert opens a five minute cooldown so a stressed host produces a
// slow trickle of pushes instead of a flood.
package monitor
