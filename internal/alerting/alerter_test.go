package alerting

import "testing"

func TestConstructors(t *testing.T) {
	cases := []struct {
		alert    Alert
		severity string
	}{
		{Info("t", "m"), SeverityInfo},
		{Warning("t", "m"), SeverityWarning},
		{Error("t", "m"), SeverityError},
	}
	for _, c := range cases {
		if c.alert.Severity != c.severity {
			t.Errorf("severity = %q, want %q", c.alert.Severity, c.severity)
		}
		if c.alert.Title != "t" || c.alert.Message != "m" {
			t.Errorf("alert = %+v", c.alert)
		}
	}
}

func TestRaiseWithoutHub(t *testing.T) {
	a := NewAlerter(nil)
	// Must not panic and must stamp the time
	a.Raise(Info("standalone", "no hub attached"))
}
