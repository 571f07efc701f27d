package services

import "time"

var timeNow = time.Now

func stamp() int64 {
	return timeNow().UnixMilli()
}

func direct() int64 {
	return time.Now().UnixMilli() // want "time.Now called directly in domain package"
}

func elapsed(start time.Time) time.Duration {
	return time.Since(start)
}
