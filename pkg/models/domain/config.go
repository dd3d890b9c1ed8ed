package domain

// Endpoints are the console entry points of a run.
type Endpoints struct {
	LoginURL        string `mapstructure:"login_url"`
	ProductSalesURL string `mapstructure:"product_sales_url"`
}

// Credentials identify the console account.
type Credentials struct {
	Identity string
	Secret   string
}

// RunContext is resolved once at run start and passed to every component.
type RunContext struct {
	TargetDate TargetDate
	Today      TargetDate
	Endpoints  Endpoints
}

// IsToday reports whether the run targets the current day.
func (rc RunContext) IsToday() bool {
	return rc.TargetDate == rc.Today
}
