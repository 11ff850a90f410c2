package domain

import "strings"

// DocumentType is the procedural category of a legal document.
type DocumentType string

// Document types recognised from file names.
const (
	DocumentTypeAudition       DocumentType = "audition"
	DocumentTypeExpertise      DocumentType = "expertise"
	DocumentTypeFinancier      DocumentType = "financier"
	DocumentTypeJudiciaire     DocumentType = "judiciaire"
	DocumentTypeProcedure      DocumentType = "procedure"
	DocumentTypeCorrespondance DocumentType = "correspondance"
	DocumentTypePiece          DocumentType = "piece"
	DocumentTypeOther          DocumentType = "autre"
)

// documentTypeKeywords is checked in order; the first match wins.
var documentTypeKeywords = []struct {
	docType  DocumentType
	keywords []string
}{
	{DocumentTypeAudition, []string{"audition", "pv", "interrogatoire", "garde_vue"}},
	{DocumentTypeExpertise, []string{"expertise", "expert", "rapport"}},
	{DocumentTypeFinancier, []string{"releve", "bancaire", "virement", "facture", "comptable"}},
	{DocumentTypeJudiciaire, []string{"jugement", "arret", "ordonnance", "requisitoire"}},
	{DocumentTypeProcedure, []string{"conclusions", "plainte", "constitution", "memoire"}},
	{DocumentTypeCorrespondance, []string{"lettre", "courrier", "mail", "email"}},
	{DocumentTypePiece, []string{"piece", "annexe", "justificatif"}},
}

// DetectDocumentType classifies a document from its file name.
// The name is expected to be folded to lower-case ASCII by the caller
// when it may contain accents.
func DetectDocumentType(fileName string) DocumentType {
	name := strings.ToLower(fileName)
	for _, entry := range documentTypeKeywords {
		for _, kw := range entry.keywords {
			if strings.Contains(name, kw) {
				return entry.docType
			}
		}
	}
	return DocumentTypeOther
}

// String returns the string representation.
func (t DocumentType) String() string {
	return string(t)
}
