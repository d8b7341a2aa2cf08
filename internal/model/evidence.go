package model

// Evidence aggregates the structured findings reported by signal
// providers. Each provider fills at most one field; fields stay nil for
// providers that were skipped or returned nothing.
type Evidence struct {
	Registration *RegistrationEvidence `json:"registration,omitempty"`
	DNS          *DNSEvidence          `json:"dns,omitempty"`
	Certificate  *CertificateEvidence  `json:"certificate,omitempty"`
	Traffic      *TrafficEvidence      `json:"traffic,omitempty"`
	TechStack    *TechStackEvidence    `json:"tech_stack,omitempty"`
	Listing      *ListingEvidence      `json:"listing,omitempty"`
	EmailRisk    *EmailRiskEvidence    `json:"email_risk,omitempty"`
	CodeHosting  *CodeHostingEvidence  `json:"code_hosting,omitempty"`
	Archive      *ArchiveEvidence      `json:"archive,omitempty"`
	Exposure     *ExposureEvidence     `json:"exposure,omitempty"`
}

// Merge copies the non-nil fields of other into e. Later writers win on
// conflict, which cannot happen in practice since each provider owns a
// single field.
func (e *Evidence) Merge(other Evidence) {
	if other.Registration != nil {
		e.Registration = other.Registration
	}
	if other.DNS != nil {
		e.DNS = other.DNS
	}
	if other.Certificate != nil {
		e.Certificate = other.Certificate
	}
	if other.Traffic != nil {
		e.Traffic = other.Traffic
	}
	if other.TechStack != nil {
		e.TechStack = other.TechStack
	}
	if other.Listing != nil {
		e.Listing = other.Listing
	}
	if other.EmailRisk != nil {
		e.EmailRisk = other.EmailRisk
	}
	if other.CodeHosting != nil {
		e.CodeHosting = other.CodeHosting
	}
	if other.Archive != nil {
		e.Archive = other.Archive
	}
	if other.Exposure != nil {
		e.Exposure = other.Exposure
	}
}

// RegistrationEvidence describes domain registration findings.
type RegistrationEvidence struct {
	AgeYears         int    `json:"age_years"`
	Registrar        string `json:"registrar,omitempty"`
	PrivacyProtected bool   `json:"privacy_protected"`
}

// DNSEvidence describes DNS liveness findings.
type DNSEvidence struct {
	HasAddress bool `json:"has_address"`
	HasMX      bool `json:"has_mx"`
}

// CertificateEvidence describes TLS certificate findings.
type CertificateEvidence struct {
	Valid        bool   `json:"valid"`
	Issuer       string `json:"issuer,omitempty"`
	OrgValidated bool   `json:"org_validated"`
}

// TrafficEvidence describes estimated web presence.
type TrafficEvidence struct {
	GlobalRank int `json:"global_rank"`
}

// TechStackEvidence describes the detected technology fingerprint.
type TechStackEvidence struct {
	Technologies []string `json:"technologies,omitempty"`
	TelecomStack bool     `json:"telecom_stack"`
}

// ListingEvidence describes business registry findings.
type ListingEvidence struct {
	Status    string `json:"status"`
	AgeYears  int    `json:"age_years"`
	Employees int    `json:"employees"`
}

// EmailRiskEvidence describes mailbox-level risk findings.
type EmailRiskEvidence struct {
	RoleBased    bool `json:"role_based"`
	Disposable   bool `json:"disposable"`
	FreeProvider bool `json:"free_provider"`
	BreachSeen   bool `json:"breach_seen"`
}

// CodeHostingEvidence describes public code hosting presence.
type CodeHostingEvidence struct {
	OrgFound    bool `json:"org_found"`
	PublicRepos int  `json:"public_repos"`
}

// ArchiveEvidence describes web archive history depth.
type ArchiveEvidence struct {
	FirstSeenYearsAgo int `json:"first_seen_years_ago"`
	Snapshots         int `json:"snapshots"`
}

// ExposureEvidence describes internet exposure findings.
type ExposureEvidence struct {
	ExposedServices bool `json:"exposed_services"`
	KnownVulns      bool `json:"known_vulns"`
}
