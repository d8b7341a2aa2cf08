package provider

// SlowProviders names providers backed by slow upstream sources; they
// get the longer evaluation deadline.
var SlowProviders = map[string]bool{
	"listings":    true,
	"web_archive": true,
}

// DefaultRegistry returns a registry with the full bundled provider set
// registered in scoring order.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(NewRegistrationProvider())
	r.Register(NewDNSHealthProvider())
	r.Register(NewCertificateProvider())
	r.Register(NewTrafficProvider())
	r.Register(NewTechStackProvider())
	r.Register(NewListingsProvider())
	r.Register(NewEmailRiskProvider())
	r.Register(NewGitHubProvider())
	r.Register(NewWebArchiveProvider())
	r.Register(NewExposureProvider())
	return r
}
