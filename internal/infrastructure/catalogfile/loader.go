// Package catalogfile loads the static product catalog from a YAML document.
package catalogfile

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/marmoleria/backend/internal/domain/catalog"
	"github.com/marmoleria/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// File mirrors the YAML layout of the catalog document
type File struct {
	Currency      string        `yaml:"currency" validate:"required,len=3,uppercase"`
	Formats       formatsFile   `yaml:"formats"`
	Products      []productFile `yaml:"products" validate:"required,min=1,dive"`
	YieldGroups   []yieldFile   `yaml:"yield_groups" validate:"dive"`
	Sealants      []sealantFile `yaml:"sealants" validate:"dive"`
	ShippingRates []rateFile    `yaml:"shipping_rates" validate:"dive"`
	Profiles      []profileFile `yaml:"profiles" validate:"required,min=1,dive"`
}

type formatsFile struct {
	Standard decimal.Decimal `yaml:"standard"`
	XL       decimal.Decimal `yaml:"xl"`
}

type productFile struct {
	Reference   string          `yaml:"reference" validate:"required"`
	Name        string          `yaml:"name"`
	Kind        string          `yaml:"kind" validate:"required,oneof=SURFACE SUPPLY"`
	Price       decimal.Decimal `yaml:"price"`
	Unit        string          `yaml:"unit"`
	YieldClass  string          `yaml:"yield_class"`
	Translucent bool            `yaml:"translucent"`
	XL          bool            `yaml:"xl"`
}

type yieldFile struct {
	Name        string          `yaml:"name" validate:"required"`
	Class       string          `yaml:"class" validate:"required_without=Products"`
	Products    []string        `yaml:"products" validate:"required_without=Class,dive,required"`
	Ratio       decimal.Decimal `yaml:"ratio"`
	Translucent bool            `yaml:"translucent"`
}

type sealantFile struct {
	Reference     string          `yaml:"reference" validate:"required"`
	StandardYield decimal.Decimal `yaml:"standard_yield"`
	ClayYield     decimal.Decimal `yaml:"clay_yield"`
}

type rateFile struct {
	City     string          `yaml:"city" validate:"required"`
	BaseFee  decimal.Decimal `yaml:"base_fee"`
	PerKgFee decimal.Decimal `yaml:"per_kg_fee"`
}

type profileFile struct {
	Name            string                     `yaml:"name" validate:"required"`
	Currency        string                     `yaml:"currency" validate:"omitempty,len=3,uppercase"`
	DefaultWeightKg decimal.Decimal            `yaml:"default_weight_kg"`
	WeightKg        map[string]decimal.Decimal `yaml:"weight_kg"`
	AllowAdhesive   bool                       `yaml:"allow_adhesive"`
	AllowSealant    bool                       `yaml:"allow_sealant"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Load reads and validates the catalog file at path
func Load(path string) (*catalog.Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	c, err := Parse(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return c, nil
}

// Parse decodes a catalog document. Unknown keys are rejected.
func Parse(r io.Reader) (*catalog.Catalog, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f File
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty catalog document")
		}
		return nil, fmt.Errorf("decode: %w", err)
	}
	if err := validate.Struct(&f); err != nil {
		return nil, describe(err)
	}
	return catalog.NewCatalog(f.toData())
}

func (f *File) toData() catalog.Data {
	currency := valueobject.ParseCurrency(f.Currency)
	money := func(d decimal.Decimal) valueobject.Money {
		return valueobject.MustNewMoney(d, currency)
	}

	data := catalog.Data{
		Formats: catalog.FormatAreas{Standard: f.Formats.Standard, XL: f.Formats.XL},
	}
	for _, p := range f.Products {
		data.Products = append(data.Products, catalog.Product{
			Reference:   strings.TrimSpace(p.Reference),
			Name:        p.Name,
			Kind:        catalog.ProductKind(p.Kind),
			UnitPrice:   money(p.Price),
			Unit:        p.Unit,
			YieldClass:  p.YieldClass,
			Translucent: p.Translucent,
			XLFormat:    p.XL,
		})
	}
	for _, g := range f.YieldGroups {
		data.YieldGroups = append(data.YieldGroups, catalog.YieldGroup{
			Name:        g.Name,
			Class:       g.Class,
			Products:    g.Products,
			Ratio:       g.Ratio,
			Translucent: g.Translucent,
		})
	}
	for _, s := range f.Sealants {
		data.Sealants = append(data.Sealants, catalog.SealantYield{
			Reference:     s.Reference,
			StandardYield: s.StandardYield,
			ClayYield:     s.ClayYield,
		})
	}
	for _, r := range f.ShippingRates {
		data.ShippingRates = append(data.ShippingRates, catalog.ShippingRate{
			City:     r.City,
			BaseFee:  money(r.BaseFee),
			PerKgFee: money(r.PerKgFee),
		})
	}
	for _, p := range f.Profiles {
		profileCurrency := currency
		if p.Currency != "" {
			profileCurrency = valueobject.ParseCurrency(p.Currency)
		}
		data.Profiles = append(data.Profiles, catalog.CalculatorProfile{
			Name:            p.Name,
			Currency:        profileCurrency,
			DefaultWeightKg: p.DefaultWeightKg,
			WeightKg:        p.WeightKg,
			AllowAdhesive:   p.AllowAdhesive,
			AllowSealant:    p.AllowSealant,
		})
	}
	return data
}

func describe(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %q", strings.TrimPrefix(fe.Namespace(), "File."), fe.Tag()))
	}
	return fmt.Errorf("invalid catalog: %s", strings.Join(msgs, "; "))
}
