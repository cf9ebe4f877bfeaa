package interfaces

// ActivityLogger accepts leveled progress messages tagged by campaign/domain
// for live progress display. The pipeline calls into it but does not define
// its storage. Implementations must be safe for concurrent use.
type ActivityLogger interface {
	Info(campaignID, domainID, format string, args ...interface{})
	Success(campaignID, domainID, format string, args ...interface{})
	Warning(campaignID, domainID, format string, args ...interface{})
	Error(campaignID, domainID, format string, args ...interface{})
	Step(campaignID, domainID, format string, args ...interface{})
}

// NoopActivityLogger discards all messages. Used as the test double.
type NoopActivityLogger struct{}

func (NoopActivityLogger) Info(campaignID, domainID, format string, args ...interface{})    {}
func (NoopActivityLogger) Success(campaignID, domainID, format string, args ...interface{}) {}
func (NoopActivityLogger) Warning(campaignID, domainID, format string, args ...interface{}) {}
func (NoopActivityLogger) Error(campaignID, domainID, format string, args ...interface{})   {}
func (NoopActivityLogger) Step(campaignID, domainID, format string, args ...interface{})    {}
