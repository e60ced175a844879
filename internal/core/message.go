package core

import "time"

// DisplayTimeLayout is the HH:MM layout used for the message display time.
const DisplayTimeLayout = "15:04"

// DisplayTime formats t as a local HH:MM display time. It is only a default:
// clients may supply their own display time, which is stored unchecked.
func DisplayTime(t time.Time) string {
	return t.Local().Format(DisplayTimeLayout)
}
