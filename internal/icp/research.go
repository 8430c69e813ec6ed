package icp

import (
	"strings"

	"github.com/hs-platform/revintel/pkg/models"
)

// requiredResearchFields are the enrichment fields a record must carry
// before it counts as research-complete.
var requiredResearchFields = []string{
	"company_name",
	"website",
	"product_description",
	"value_prop",
	"target_customer",
}

// ResearchValidation reports how complete a research record is.
type ResearchValidation struct {
	Complete      bool     `json:"complete"`
	MissingFields []string `json:"missing_fields,omitempty"`
	FilledFields  int      `json:"filled_fields"`
	TotalFields   int      `json:"total_fields"`
}

// ValidateResearch checks a research record against the required
// enrichment fields and reports which are missing.
func ValidateResearch(record models.ResearchRecord) ResearchValidation {
	values := map[string]string{
		"company_name":        record.CompanyName,
		"website":             record.Website,
		"product_description": record.ProductDescription,
		"value_prop":          record.ValueProp,
		"target_customer":     record.TargetCustomer,
	}

	validation := ResearchValidation{TotalFields: len(requiredResearchFields)}
	for _, field := range requiredResearchFields {
		if strings.TrimSpace(values[field]) == "" {
			validation.MissingFields = append(validation.MissingFields, field)
		} else {
			validation.FilledFields++
		}
	}
	validation.Complete = len(validation.MissingFields) == 0
	return validation
}
