package models

import "time"

func testTime() time.Time {
	return time.Date(2024, time.March, 4, 9, 30, 0, 0, time.UTC)
}
