package testutil

import (
	"fmt"
	"strings"
	"time"
)

// ObjectsLogHeader is the header line written by the analytics logger.
const ObjectsLogHeader = "Timestamp,DetectedObjects,ViolatingObjects,EnvironmentScore"

// SampleObjectsLog is a two-row log used across packages.
const SampleObjectsLog = ObjectsLogHeader + "\n" +
	"2020-05-01 10:00:00,10,2,85\n" +
	"2020-05-01 10:00:05,12,3,80\n"

// GenerateObjectsLog builds a log of n rows, one every interval, starting at
// start. Values cycle so tests can predict them.
func GenerateObjectsLog(start time.Time, interval time.Duration, n int) string {
	var b strings.Builder
	b.WriteString(ObjectsLogHeader)
	b.WriteByte('\n')
	for i := 0; i < n; i++ {
		ts := start.Add(time.Duration(i) * interval).Format("2006-01-02 15:04:05")
		fmt.Fprintf(&b, "%s,%d,%d,%d\n", ts, i%20, i%5, 100-i%50)
	}
	return b.String()
}
