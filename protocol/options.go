package protocol

// OptionID enumerates the configuration options a RadioDriver accepts via
// SetOption.
type OptionID uint8

const (
	// OptAddress sets the device's own address (1 byte).
	OptAddress OptionID = iota
	// OptSnifMode disables the hardware address filter when its 1-byte
	// value is non-zero.
	OptSnifMode
	// OptEmissionPower selects low (0) or high (non-zero) transmit power.
	OptEmissionPower
)
