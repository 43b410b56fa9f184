package logic

// CheckPresence applies the disconnection heuristic: a connected source never
// reads a literal zero on the primary channel, so 0 on channel A is taken as
// "no source". Readings on channel B never signal absence.
func CheckPresence(ch Channel, raw Raw) Presence {
	if ch == ChannelA && raw == 0 {
		return PresenceAbsent
	}
	return PresencePresent
}
