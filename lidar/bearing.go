package lidar

const fullTurn = 360

// Bearing corrects a raw LIDAR angle with the variant calibration, in [0, 360).
// Variants without calibration return the normalized raw angle.
func (v Variant) Bearing(raw int) int {
	return normalize(raw + v.DegreeOffset)
}

// PacketShift is the number of whole packets a scan is shifted by the variant calibration.
func (v Variant) PacketShift() int {
	return v.DegreeOffset / ReadingsPerPacket
}

// PacketIndex returns the packet holding the given bearing.
func PacketIndex(bearing int) int {
	return normalize(bearing) / ReadingsPerPacket
}

func normalize(deg int) int {
	deg %= fullTurn
	if deg < 0 {
		deg += fullTurn
	}
	return deg
}
