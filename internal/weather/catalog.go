package weather

// Category groups variables for the selection surface only.
type Category string

const (
	CategoryWind          Category = "wind speed"
	CategoryTemperature   Category = "temperature"
	CategoryCloudRadiance Category = "cloud and radiation"
	CategoryPrecipitation Category = "precipitation"
	CategoryPressure      Category = "pressure"
)

// CategoryOrder is the display priority of categories.
var CategoryOrder = []Category{
	CategoryWind,
	CategoryTemperature,
	CategoryCloudRadiance,
	CategoryPrecipitation,
	CategoryPressure,
}

// VariableDefinition describes one meteorological variable the backend serves.
type VariableDefinition struct {
	Code     string   `json:"code"`
	Label    string   `json:"label"`
	Unit     string   `json:"unit"`
	Category Category `json:"category"`
}

// VariableLabel is the display information resolved for a code.
type VariableLabel struct {
	Label string `json:"label"`
	Unit  string `json:"unit"`
}

// CategoryGroup is one category and its variables, in catalog order.
type CategoryGroup struct {
	Category  Category             `json:"category"`
	Variables []VariableDefinition `json:"variables"`
}

// Catalog is an immutable registry of variable definitions.
type Catalog struct {
	defs   []VariableDefinition
	byCode map[string]int
}

// SurfaceVariables are the surface fields of the gridded dataset.
var SurfaceVariables = []VariableDefinition{
	{Code: "u10", Label: "10m U wind component", Unit: "m/s", Category: CategoryWind},
	{Code: "v10", Label: "10m V wind component", Unit: "m/s", Category: CategoryWind},
	{Code: "u100", Label: "100m U wind component", Unit: "m/s", Category: CategoryWind},
	{Code: "v100", Label: "100m V wind component", Unit: "m/s", Category: CategoryWind},

	{Code: "t2m", Label: "2m temperature (T2M)", Unit: "K", Category: CategoryTemperature},

	{Code: "tcc", Label: "Total cloud cover", Unit: "%", Category: CategoryCloudRadiance},
	{Code: "ssr6h", Label: "6h surface solar radiation", Unit: "J/m²", Category: CategoryCloudRadiance},

	{Code: "tp6h", Label: "6h total precipitation", Unit: "mm", Category: CategoryPrecipitation},

	{Code: "sp", Label: "Surface pressure (SP)", Unit: "Pa", Category: CategoryPressure},
	{Code: "msl", Label: "Mean sea level pressure (MSL)", Unit: "Pa", Category: CategoryPressure},
}

// NewCatalog builds a catalog from defs. Later duplicates of a code are ignored.
func NewCatalog(defs []VariableDefinition) *Catalog {
	c := &Catalog{
		defs:   make([]VariableDefinition, 0, len(defs)),
		byCode: make(map[string]int, len(defs)),
	}
	for _, d := range defs {
		if _, dup := c.byCode[d.Code]; dup {
			continue
		}
		c.byCode[d.Code] = len(c.defs)
		c.defs = append(c.defs, d)
	}
	return c
}

// DefaultCatalog returns the catalog of SurfaceVariables.
func DefaultCatalog() *Catalog {
	return NewCatalog(SurfaceVariables)
}

// Lookup never fails: unknown codes resolve to {code, "-"}.
func (c *Catalog) Lookup(code string) VariableLabel {
	if i, ok := c.byCode[code]; ok {
		return VariableLabel{Label: c.defs[i].Label, Unit: c.defs[i].Unit}
	}
	return VariableLabel{Label: code, Unit: "-"}
}

// Has reports whether code is a known variable.
func (c *Catalog) Has(code string) bool {
	_, ok := c.byCode[code]
	return ok
}

// Definitions returns a copy of all definitions in catalog order.
func (c *Catalog) Definitions() []VariableDefinition {
	out := make([]VariableDefinition, len(c.defs))
	copy(out, c.defs)
	return out
}

// Grouped returns the variables grouped by CategoryOrder. Categories without
// variables are skipped, as are variables whose category is not in the order.
func (c *Catalog) Grouped() []CategoryGroup {
	groups := make([]CategoryGroup, 0, len(CategoryOrder))
	for _, cat := range CategoryOrder {
		var vars []VariableDefinition
		for _, d := range c.defs {
			if d.Category == cat {
				vars = append(vars, d)
			}
		}
		if len(vars) == 0 {
			continue
		}
		groups = append(groups, CategoryGroup{Category: cat, Variables: vars})
	}
	return groups
}
