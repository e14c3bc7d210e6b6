// Package dlpio drives the DLP-IO8-G USB line driver used to synchronize
// the recording rig with the display. Line 1 carries the frame trigger.
package dlpio

import (
	"fmt"
	"log"
	"time"

	"go.bug.st/serial"
)

// PulseWidth is how long the trigger line is held high. The recording rig
// samples at millisecond resolution, so one millisecond is enough.
const PulseWidth = time.Millisecond

type Device struct {
	port serial.Port
}

// Open connects to the line driver, verifies it answers the ping command
// and switches it to binary mode.
func Open(device string, baudrate int) (*Device, error) {
	mode := &serial.Mode{
		BaudRate: baudrate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(device, mode)
	if err != nil {
		return nil, err
	}

	d := &Device{port: port}

	// Ping
	if _, err := port.Write([]byte{0x27}); err != nil {
		port.Close()
		return nil, err
	}
	buf := make([]byte, 1)
	n, err := port.Read(buf)
	if err != nil || n != 1 || buf[0] != 'Q' {
		port.Close()
		return nil, fmt.Errorf("device did not respond to ping correctly")
	}

	// Binary mode
	if _, err := port.Write([]byte{0x5C}); err != nil {
		port.Close()
		return nil, err
	}

	return d, nil
}

func (d *Device) Close() {
	if d.port != nil {
		d.port.Close()
	}
}

func (d *Device) Ping() bool {
	if _, err := d.port.Write([]byte{0x27}); err != nil {
		return false
	}
	buf := make([]byte, 1)
	n, err := d.port.Read(buf)
	return err == nil && n == 1 && buf[0] == 'Q'
}

// Pulse raises line 1 for PulseWidth and drops it again. Errors are logged,
// not returned; a missed pulse must not abort the frame loop.
func (d *Device) Pulse() {
	d.Set("1")
	time.Sleep(PulseWidth)
	d.Unset("1")
}

// Set raises the named lines ('1' through '8').
func (d *Device) Set(lines string) {
	if _, err := d.port.Write([]byte(lines)); err != nil {
		log.Printf("dlp set: %v", err)
	}
}

// Unset drops the named lines. The clear command for line N is the letter
// at position N on the keyboard's top row.
func (d *Device) Unset(lines string) {
	cmd := []byte(lines)
	for i := range cmd {
		switch cmd[i] {
		case '1':
			cmd[i] = 'Q'
		case '2':
			cmd[i] = 'W'
		case '3':
			cmd[i] = 'E'
		case '4':
			cmd[i] = 'R'
		case '5':
			cmd[i] = 'T'
		case '6':
			cmd[i] = 'Y'
		case '7':
			cmd[i] = 'U'
		case '8':
			cmd[i] = 'I'
		}
	}
	if _, err := d.port.Write(cmd); err != nil {
		log.Printf("dlp unset: %v", err)
	}
}
