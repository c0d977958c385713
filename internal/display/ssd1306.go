package display

// SSD1306 command set used by the watch panel.
const (
	cmdMemoryMode     = 0x20
	cmdColumnAddr     = 0x21
	cmdPageAddr       = 0x22
	cmdStartLine      = 0x40
	cmdContrast       = 0x81
	cmdChargePump     = 0x8D
	cmdSegRemap       = 0xA0
	cmdEntireOnResume = 0xA4
	cmdNormal         = 0xA6
	cmdMultiplex      = 0xA8
	cmdDisplayOff     = 0xAE
	cmdDisplayOn      = 0xAF
	cmdCOMScanInc     = 0xC0
	cmdDisplayOffset  = 0xD3
	cmdClockDiv       = 0xD5
	cmdPrecharge      = 0xD9
	cmdCOMPins        = 0xDA
	cmdVCOMDetect     = 0xDB
)

// DefaultContrast is the contrast written at init.
const DefaultContrast = 0xFF

// initSequence brings the controller up for a 96x39 panel with horizontal
// addressing, so one data frame fills the whole window. The panel is left
// off; power is switched separately.
func initSequence(contrast byte) []byte {
	return []byte{
		cmdDisplayOff,
		cmdClockDiv, 0x80,
		cmdMultiplex, Height - 1,
		cmdDisplayOffset, 0x00,
		cmdStartLine | 0x00,
		cmdChargePump, 0x14,
		cmdSegRemap,
		cmdCOMScanInc,
		cmdCOMPins, 0x12,
		cmdContrast, contrast,
		cmdPrecharge, 0x25,
		cmdVCOMDetect, 0x20,
		cmdEntireOnResume,
		cmdNormal,
		cmdMemoryMode, 0x00,
	}
}

// windowSequence selects the full frame as the write window.
func windowSequence() []byte {
	return []byte{
		cmdColumnAddr, 0, Width - 1,
		cmdPageAddr, 0, Pages - 1,
	}
}
