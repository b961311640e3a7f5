package rbxl

// matrixFromID returns the rotation matrix for a special CFrame rotation ID,
// or the zero matrix if the ID does not correspond to a valid rotation.
func matrixFromID(i uint8) (m [9]float32) {
	i--
	// Ignore IDs that produce invalid matrices. 0, which is wrapped to 255,
	// indicates a non-special CFrame, so it must also be ignored.
	if i >= 35 || i/6%3 == i%3 {
		return m
	}
	// Set directions of X and Y axes.
	m[i/6%3*3] = 1 - float32(i/18*2)
	m[i%6%3*3+1] = 1 - float32(i%6/3*2)
	// Set Z axis to cross product of X and Y.
	m[2] = m[3]*m[7] - m[4]*m[6]
	m[5] = m[6]*m[1] - m[7]*m[0]
	m[8] = m[0]*m[4] - m[1]*m[3]
	return m
}

// cframeSpecialMatrix maps each valid rotation ID to its matrix.
var cframeSpecialMatrix = func() map[uint8][9]float32 {
	matrices := make(map[uint8][9]float32, 24)
	for id := uint8(1); id <= 36; id++ {
		if m := matrixFromID(id); m != [9]float32{} {
			matrices[id] = m
		}
	}
	return matrices
}()
