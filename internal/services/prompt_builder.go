package services

import (
	"fmt"
	"strconv"
	"strings"

	"hairsim/internal/models/domain_models"
	"hairsim/pkg/utils"
)

const reportSchema = `{
  "clientInformation": {"name": "", "age": "", "gender": "", "phoneNumber": "", "emailAddress": ""},
  "hairLossAssessment": {
    "pattern": "", "severity": {"score": 0, "category": ""},
    "hairlineRecession": "", "crownThinning": "", "overallDensity": "",
    "distinctiveCharacteristics": ""
  },
  "characteristics": {
    "hairColor": "", "hairTexture": "", "hairThickness": "", "hairDensity": "",
    "faceShape": "", "scalpCondition": "", "growthPattern": ""
  },
  "recommendations": {"approach": "", "graftCount": "", "specialConsiderations": "", "expectedResults": ""},
  "summary": ""
}`

const (
	summaryNote4to6cm           = " This simulation shows a hairline positioned at the 4-6cm distance from the eyebrows."
	considerationNote4to6cm     = " The hairline is planned at the standard 4-6cm distance above the eyebrows."
	summaryNotePredefined       = " This simulation shows a hairline that follows the pre-drawn line marked on the client's forehead."
	considerationNotePredefined = " The hairline follows the line drawn on the forehead during consultation."
)

type Prompts struct {
	Report string
	Image  string
}

// PromptBuilder renders prompts from intake data and catalog choices. Output
// depends only on its inputs.
type PromptBuilder struct {
	catalog domain_models.Catalog
}

func NewPromptBuilder(catalog domain_models.Catalog) *PromptBuilder {
	return &PromptBuilder{catalog: catalog}
}

func (b *PromptBuilder) Catalog() domain_models.Catalog {
	return b.catalog
}

// Resolve turns catalog ids into a selection snapshot.
func (b *PromptBuilder) Resolve(hairlineID, hairstyleID string) (*domain_models.Selection, error) {
	hl, ok := b.catalog.Hairline(hairlineID)
	if !ok {
		return nil, fmt.Errorf("%w: hairline %q", utils.ErrUnknownCatalogEntry, hairlineID)
	}
	hs, ok := b.catalog.Hairstyle(hairstyleID)
	if !ok {
		return nil, fmt.Errorf("%w: hairstyle %q", utils.ErrUnknownCatalogEntry, hairstyleID)
	}
	return &domain_models.Selection{Hairline: hl, Hairstyle: hs}, nil
}

// AutoSelection is the snapshot stored when the model picks the look itself.
func AutoSelection() *domain_models.Selection {
	return &domain_models.Selection{
		Hairline:     domain_models.AISelectedEntry,
		Hairstyle:    domain_models.AISelectedEntry,
		AutoSelected: true,
	}
}

func (b *PromptBuilder) Build(intake domain_models.Intake, sel *domain_models.Selection, autoSelect bool, adj domain_models.HairlineAdjustment) (Prompts, error) {
	if !adj.Valid() {
		return Prompts{}, fmt.Errorf("%w: adjustment %q", utils.ErrInvalidRequest, adj)
	}
	if autoSelect || (sel != nil && sel.AutoSelected) {
		return Prompts{
			Report: autoSelectReportPrompt(intake),
			Image:  autoSelectImagePrompt(adj),
		}, nil
	}
	if sel == nil {
		return Prompts{}, fmt.Errorf("%w: hairline and hairstyle selection", utils.ErrMissingInput)
	}

	hl := b.withKeywords(sel.Hairline, b.catalog.Hairlines)
	hs := b.withKeywords(sel.Hairstyle, b.catalog.Hairstyles)
	return Prompts{
		Report: manualReportPrompt(intake, hl, hs),
		Image:  manualImagePrompt(hl, hs, adj),
	}, nil
}

// DefaultImagePrompt is used when a record has no stored image prompt.
func (b *PromptBuilder) DefaultImagePrompt(sel *domain_models.Selection) string {
	style, hairline := "modern", "natural"
	if sel != nil && !sel.AutoSelected {
		if sel.Hairstyle.Title != "" {
			style = sel.Hairstyle.Title
		}
		if sel.Hairline.Title != "" {
			hairline = sel.Hairline.Title
		}
	}
	return fmt.Sprintf("Transform this image to show the person after a successful hair transplant. "+
		"Apply the %s hairstyle with a %s hairline shape. "+
		"Keep the face, skin tone, expression, lighting and background unchanged. "+
		"The result must look like a realistic photograph.", style, hairline)
}

// AdjustmentNotes returns the text appended to a structured report when a
// special hairline adjustment was requested.
func AdjustmentNotes(adj domain_models.HairlineAdjustment) (summary, consideration string) {
	switch adj {
	case domain_models.AdjustmentStandard4to6cm:
		return summaryNote4to6cm, considerationNote4to6cm
	case domain_models.AdjustmentPredefinedLine:
		return summaryNotePredefined, considerationNotePredefined
	}
	return "", ""
}

// stored selections drop keywords, so look them up again by id
func (b *PromptBuilder) withKeywords(e domain_models.CatalogEntry, entries []domain_models.CatalogEntry) domain_models.CatalogEntry {
	for _, c := range entries {
		if c.ID == e.ID {
			return c
		}
	}
	return e
}

func manualReportPrompt(intake domain_models.Intake, hl, hs domain_models.CatalogEntry) string {
	var sb strings.Builder
	sb.WriteString("You are an experienced hair restoration specialist. Analyse the attached front photo ")
	sb.WriteString("and write a consultation report for a hair transplant candidate.\n\n")
	writeIntake(&sb, intake)
	fmt.Fprintf(&sb, "\nPlanned hairline: %s (%s)\n", hl.Title, hl.Description)
	fmt.Fprintf(&sb, "Planned hairstyle: %s (%s)\n", hs.Title, hs.Description)
	sb.WriteString("\nAssess the hair loss pattern and severity on a 1-10 scale, describe the hair characteristics, ")
	sb.WriteString("and recommend an approach with an estimated graft count suitable for the planned hairline and hairstyle.\n")
	writeSchemaInstructions(&sb)
	return sb.String()
}

func autoSelectReportPrompt(intake domain_models.Intake) string {
	var sb strings.Builder
	sb.WriteString("You are an experienced hair restoration specialist. Analyse the attached front photo ")
	sb.WriteString("and write a consultation report for a hair transplant candidate.\n\n")
	writeIntake(&sb, intake)
	sb.WriteString("\nNo hairline or hairstyle has been chosen. Based on the face shape, age and existing hair, ")
	sb.WriteString("choose the hairline shape and hairstyle that would suit this person best and name them ")
	sb.WriteString("in recommendations.approach, explaining the choice.\n")
	writeSchemaInstructions(&sb)
	return sb.String()
}

func manualImagePrompt(hl, hs domain_models.CatalogEntry, adj domain_models.HairlineAdjustment) string {
	var sb strings.Builder
	sb.WriteString("Edit this photo to show the same person after a successful hair transplant.\n")
	fmt.Fprintf(&sb, "Hairline: %s. %s", hl.Title, hl.Description)
	if len(hl.Keywords) > 0 {
		fmt.Fprintf(&sb, " (%s)", strings.Join(hl.Keywords, ", "))
	}
	sb.WriteString(".\n")
	fmt.Fprintf(&sb, "Hairstyle: %s. %s", hs.Title, hs.Description)
	if len(hs.Keywords) > 0 {
		fmt.Fprintf(&sb, " (%s)", strings.Join(hs.Keywords, ", "))
	}
	sb.WriteString(".\n")
	if hs.StyleNotes != "" {
		sb.WriteString(hs.StyleNotes + "\n")
	}
	writeAdjustment(&sb, adj)
	writeImageConstraints(&sb)
	return sb.String()
}

func autoSelectImagePrompt(adj domain_models.HairlineAdjustment) string {
	var sb strings.Builder
	sb.WriteString("Edit this photo to show the same person after a successful hair transplant.\n")
	sb.WriteString("Choose the hairline shape and hairstyle that best suit this person's face shape and age, ")
	sb.WriteString("with natural density and a soft, age-appropriate hairline.\n")
	writeAdjustment(&sb, adj)
	writeImageConstraints(&sb)
	return sb.String()
}

func writeAdjustment(sb *strings.Builder, adj domain_models.HairlineAdjustment) {
	switch adj {
	case domain_models.AdjustmentStandard4to6cm:
		sb.WriteString("Place the front of the hairline 4-6cm above the eyebrows, measured at the centre of the forehead.\n")
	case domain_models.AdjustmentPredefinedLine:
		sb.WriteString("A hairline has been drawn on the forehead with a marker. Place the new hairline exactly along that line ")
		sb.WriteString("and remove the marker from the final image.\n")
	}
}

func writeImageConstraints(sb *strings.Builder) {
	sb.WriteString("Keep the face, skin tone, expression, clothing, lighting and background unchanged. ")
	sb.WriteString("The hair colour and texture must match the existing hair. ")
	sb.WriteString("The result must look like an unedited photograph.")
}

func writeIntake(sb *strings.Builder, intake domain_models.Intake) {
	sb.WriteString("Client information:\n")
	fmt.Fprintf(sb, "- Name: %s\n", orUnknown(intake.Name))
	age := ""
	if intake.Age != nil {
		age = strconv.Itoa(*intake.Age)
	}
	fmt.Fprintf(sb, "- Age: %s\n", orUnknown(age))
	fmt.Fprintf(sb, "- Gender: %s\n", orUnknown(intake.Gender))
	fmt.Fprintf(sb, "- Phone: %s\n", orUnknown(intake.PhoneNumber))
	fmt.Fprintf(sb, "- Email: %s\n", orUnknown(intake.EmailAddress))
	if intake.Notes != "" {
		fmt.Fprintf(sb, "- Clinician notes: %s\n", intake.Notes)
	}
}

func writeSchemaInstructions(sb *strings.Builder) {
	sb.WriteString("\nRespond with a single JSON object and nothing else, using exactly this structure:\n")
	sb.WriteString(reportSchema)
	sb.WriteString("\nCopy the client information above into clientInformation unchanged.")
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return "not provided"
	}
	return s
}
