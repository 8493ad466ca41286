package values

// Option type tags. Options are per-RouteMod modifiers, not match/action
// fields.
const (
	OptionPriority uint8 = iota + 1
	OptionCTID
	OptionIdleTimeout
	OptionHardTimeout
)

// Option is a single RouteMod modifier.
type Option struct{ TLV }

// Priority sets the flow-rule priority.
func Priority(priority uint16) Option {
	return Option{TLV{Type: OptionPriority, Value: putUint16(priority)}}
}

// Priority returns the priority carried by this option, if any.
func (o Option) Priority() (uint16, bool) {
	if o.Type != OptionPriority {
		return 0, false
	}
	return getUint16(o.Value)
}

// CTID identifies the target controller. The coordinator stamps this option
// onto each outbound RouteMod as it queues it, unless the RouteMod already
// carries one; no translator sets it.
func CTID(ctID uint32) Option {
	return Option{TLV{Type: OptionCTID, Value: putUint32(ctID)}}
}

// CTID returns the controller id carried by this option, if any.
func (o Option) CTID() (uint32, bool) {
	if o.Type != OptionCTID {
		return 0, false
	}
	return getUint32(o.Value)
}

// IdleTimeout sets the flow-rule idle timeout, in seconds.
func IdleTimeout(seconds uint16) Option {
	return Option{TLV{Type: OptionIdleTimeout, Value: putUint16(seconds)}}
}

// IdleTimeout returns the idle timeout carried by this option, if any.
func (o Option) IdleTimeout() (uint16, bool) {
	if o.Type != OptionIdleTimeout {
		return 0, false
	}
	return getUint16(o.Value)
}

// HardTimeout sets the flow-rule hard timeout, in seconds.
func HardTimeout(seconds uint16) Option {
	return Option{TLV{Type: OptionHardTimeout, Value: putUint16(seconds)}}
}

// HardTimeout returns the hard timeout carried by this option, if any.
func (o Option) HardTimeout() (uint16, bool) {
	if o.Type != OptionHardTimeout {
		return 0, false
	}
	return getUint16(o.Value)
}

// HasCTID reports whether a list of options already carries a CTID, so the
// coordinator does not stamp a duplicate.
func HasCTID(opts []Option) bool {
	for _, o := range opts {
		if o.Type == OptionCTID {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the option.
func (o Option) Clone() Option { return Option{o.TLV.Clone()} }

// CloneOptions deep-copies a slice of options.
func CloneOptions(in []Option) []Option {
	out := make([]Option, len(in))
	for i, o := range in {
		out[i] = o.Clone()
	}
	return out
}

// OptionFromTLV wraps a raw TLV decoded off the wire as an Option.
func OptionFromTLV(t TLV) Option { return Option{t} }
