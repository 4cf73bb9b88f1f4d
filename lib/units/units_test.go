package units

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConversion(t *testing.T) {
	c := Default
	assert.InDelta(t, 250.0, c.LengthOf(250000), 1e-9)
	assert.Equal(t, 1.5e10, c.MassOf(1.5))
	assert.Equal(t, -12.5, c.VelocityOf(-12.5))

	c = Conversion{Length: 2, Mass: 3, Velocity: 0.5}
	assert.Equal(t, 8.0, c.LengthOf(4))
	assert.Equal(t, 12.0, c.MassOf(4))
	assert.Equal(t, 2.0, c.VelocityOf(4))
}

func TestScale(t *testing.T) {
	x := []float64{1, 2, 3}
	Scale(1e10, x)
	assert.Equal(t, []float64{1e10, 2e10, 3e10}, x)

	y := []float64{1, 2}
	Scale(1, y)
	assert.Equal(t, []float64{1, 2}, y)

	Scale(2, nil)
}
