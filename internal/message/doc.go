// Package message defines the inbound message entity and validates the
// webhook envelope it arrives in.
//
// The envelope uses "from" and "to" on the wire; they map to FromMSISDN
// and ToMSISDN. Timestamps stay strings in the fixed-width form
// YYYY-MM-DDTHH:MM:SSZ so that byte order equals chronological order.
package message
