package hostapi

// KeyCode is a DirectInput-style keyboard scancode as the host's input
// layer reports it.
type KeyCode uint32

const (
	KeyEscape       KeyCode = 1
	KeyD1           KeyCode = 2
	KeyD2           KeyCode = 3
	KeyD3           KeyCode = 4
	KeyD4           KeyCode = 5
	KeyD5           KeyCode = 6
	KeyD6           KeyCode = 7
	KeyD7           KeyCode = 8
	KeyD8           KeyCode = 9
	KeyD9           KeyCode = 10
	KeyD0           KeyCode = 11
	KeyMinus        KeyCode = 12
	KeyEquals       KeyCode = 13
	KeyBackSpace    KeyCode = 14
	KeyTab          KeyCode = 15
	KeyQ            KeyCode = 16
	KeyW            KeyCode = 17
	KeyE            KeyCode = 18
	KeyR            KeyCode = 19
	KeyT            KeyCode = 20
	KeyY            KeyCode = 21
	KeyU            KeyCode = 22
	KeyI            KeyCode = 23
	KeyO            KeyCode = 24
	KeyP            KeyCode = 25
	KeyLeftBracket  KeyCode = 26
	KeyRightBracket KeyCode = 27
	KeyEnter        KeyCode = 28
	KeyLeftControl  KeyCode = 29
	KeyA            KeyCode = 30
	KeyS            KeyCode = 31
	KeyD            KeyCode = 32
	KeyF            KeyCode = 33
	KeyG            KeyCode = 34
	KeyH            KeyCode = 35
	KeyJ            KeyCode = 36
	KeyK            KeyCode = 37
	KeyL            KeyCode = 38
	KeySemiColon    KeyCode = 39
	KeyApostrophe   KeyCode = 40
	KeyGrave        KeyCode = 41
	KeyLeftShift    KeyCode = 42
	KeyBackSlash    KeyCode = 43
	KeyZ            KeyCode = 44
	KeyX            KeyCode = 45
	KeyC            KeyCode = 46
	KeyV            KeyCode = 47
	KeyB            KeyCode = 48
	KeyN            KeyCode = 49
	KeyM            KeyCode = 50
	KeyComma        KeyCode = 51
	KeyPeriod       KeyCode = 52
	KeySlash        KeyCode = 53
	KeyRightShift   KeyCode = 54
	KeyMultiply     KeyCode = 55
	KeyLeftAlt      KeyCode = 56
	KeySpace        KeyCode = 57
	KeyCapsLock     KeyCode = 58
	KeyF1           KeyCode = 59
	KeyF2           KeyCode = 60
	KeyF3           KeyCode = 61
	KeyF4           KeyCode = 62
	KeyF5           KeyCode = 63
	KeyF6           KeyCode = 64
	KeyF7           KeyCode = 65
	KeyF8           KeyCode = 66
	KeyF9           KeyCode = 67
	KeyF10          KeyCode = 68
	KeyNumlock      KeyCode = 69
	KeyScroll       KeyCode = 70
	KeyNumPad7      KeyCode = 71
	KeyNumPad8      KeyCode = 72
	KeyNumPad9      KeyCode = 73
	KeyNumPadMinus  KeyCode = 74
	KeyNumPad4      KeyCode = 75
	KeyNumPad5      KeyCode = 76
	KeyNumPad6      KeyCode = 77
	KeyNumPadPlus   KeyCode = 78
	KeyNumPad1      KeyCode = 79
	KeyNumPad2      KeyCode = 80
	KeyNumPad3      KeyCode = 81
	KeyNumPad0      KeyCode = 82
	KeyNumPadPeriod KeyCode = 83
	KeyOem102       KeyCode = 86
	KeyF11          KeyCode = 87
	KeyF12          KeyCode = 88
	KeyF13          KeyCode = 100
	KeyF14          KeyCode = 101
	KeyF15          KeyCode = 102
	KeyNumPadEquals KeyCode = 141
	KeyNumPadEnter  KeyCode = 156
	KeyRightControl KeyCode = 157
	KeyMute         KeyCode = 160
	KeyVolumeDown   KeyCode = 174
	KeyVolumeUp     KeyCode = 176
	KeyNumPadComma  KeyCode = 179
	KeyNumPadSlash  KeyCode = 181
	KeySysRq        KeyCode = 183
	KeyRightAlt     KeyCode = 184
	KeyPause        KeyCode = 197
	KeyHome         KeyCode = 199
	KeyUp           KeyCode = 200
	KeyPageUp       KeyCode = 201
	KeyLeft         KeyCode = 203
	KeyRight        KeyCode = 205
	KeyEnd          KeyCode = 207
	KeyDown         KeyCode = 208
	KeyPageDown     KeyCode = 209
	KeyInsert       KeyCode = 210
	KeyDelete       KeyCode = 211
	KeyLeftWindows  KeyCode = 219
	KeyRightWindows KeyCode = 220
	KeyApps         KeyCode = 221
)

// ControllerButton is a bit flag in the host's controller state word.
// Stick directions past a threshold report as buttons too.
type ControllerButton uint32

const (
	ButtonShare    ControllerButton = 1 << 0
	ButtonL3       ControllerButton = 1 << 1
	ButtonR3       ControllerButton = 1 << 2
	ButtonOptions  ControllerButton = 1 << 3
	ButtonUp       ControllerButton = 1 << 4
	ButtonRight    ControllerButton = 1 << 5
	ButtonDown     ControllerButton = 1 << 6
	ButtonLeft     ControllerButton = 1 << 7
	ButtonL1       ControllerButton = 1 << 8
	ButtonR1       ControllerButton = 1 << 9
	ButtonL2       ControllerButton = 1 << 10
	ButtonR2       ControllerButton = 1 << 11
	ButtonTriangle ControllerButton = 1 << 12
	ButtonCircle   ControllerButton = 1 << 13
	ButtonCross    ControllerButton = 1 << 14
	ButtonSquare   ControllerButton = 1 << 15
	ButtonLsUp     ControllerButton = 1 << 16
	ButtonLsRight  ControllerButton = 1 << 17
	ButtonLsDown   ControllerButton = 1 << 18
	ButtonLsLeft   ControllerButton = 1 << 19
	ButtonRsUp     ControllerButton = 1 << 20
	ButtonRsRight  ControllerButton = 1 << 21
	ButtonRsDown   ControllerButton = 1 << 22
	ButtonRsLeft   ControllerButton = 1 << 23
)

// InputSource answers input-state queries. The host's input layer provides
// the real one; a nil source answers false to everything.
type InputSource interface {
	KeyPressed(key KeyCode) bool
	KeyDown(key KeyCode) bool
	ControllerPressed(button ControllerButton) bool
	ControllerDown(button ControllerButton) bool
}
