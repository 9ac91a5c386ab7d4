package state

import "time"

func defaultTimeNow() time.Time { return time.Now() }
