package document

import (
	"fmt"

	"github.com/kokukuma/mdoc-issuer/mdoc"
)

var (
	IsoMDL  mdoc.DocType = "org.iso.18013.5.1.mDL"
	EudiPid mdoc.DocType = "eu.europa.ec.eudi.pid.1"
)

var (
	ISO1801351 mdoc.NameSpace = "org.iso.18013.5.1"
	EUDIPID1   mdoc.NameSpace = "eu.europa.ec.eudi.pid.1"
)

// Elements of the ISO mDL namespace the issuer reads or fills.
var (
	IsoFamilyName           mdoc.ElementIdentifier = "family_name"
	IsoGivenName            mdoc.ElementIdentifier = "given_name"
	IsoBirthDate            mdoc.ElementIdentifier = "birth_date"
	IsoDocumentNumber       mdoc.ElementIdentifier = "document_number"
	IsoResidentCity         mdoc.ElementIdentifier = "resident_city"
	IsoDrivingPrivileges    mdoc.ElementIdentifier = "driving_privileges"
	IsoAgeInYears           mdoc.ElementIdentifier = "age_in_years"
	IsoAgeBirthYear         mdoc.ElementIdentifier = "age_birth_year"
	IsoIssueDate            mdoc.ElementIdentifier = "issue_date"
	IsoExpiryDate           mdoc.ElementIdentifier = "expiry_date"
	IsoIssuingCountry       mdoc.ElementIdentifier = "issuing_country"
	IsoIssuingAuthority     mdoc.ElementIdentifier = "issuing_authority"
	IsoUnDistinguishingSign mdoc.ElementIdentifier = "un_distinguishing_sign"
)

// Elements of the PID namespace. The SD-JWT PID uses the same names.
var (
	EudiFamilyName          mdoc.ElementIdentifier = "family_name"
	EudiGivenName           mdoc.ElementIdentifier = "given_name"
	EudiBirthDate           mdoc.ElementIdentifier = "birth_date"
	EudiAgeOver18           mdoc.ElementIdentifier = "age_over_18"
	EudiIssuanceDate        mdoc.ElementIdentifier = "issuance_date"
	EudiExpiryDate          mdoc.ElementIdentifier = "expiry_date"
	EudiIssuingAuthority    mdoc.ElementIdentifier = "issuing_authority"
	EudiIssuingCountry      mdoc.ElementIdentifier = "issuing_country"
	EudiIssuingJurisdiction mdoc.ElementIdentifier = "issuing_jurisdiction"
)

// Issuer-filled elements shared across doctypes.
var (
	IssuingAuthorityUnicode mdoc.ElementIdentifier = "issuing_authority_unicode"
	CredentialTypeElement   mdoc.ElementIdentifier = "credential_type"
	Verification            mdoc.ElementIdentifier = "verification"
	WalletName              mdoc.ElementIdentifier = "wallet_name"
	WalletLink              mdoc.ElementIdentifier = "wallet_link"
	AAL                     mdoc.ElementIdentifier = "aal"
	Subject                 mdoc.ElementIdentifier = "sub"
)

// Structured elements submitted as JSON text by forms.
var (
	PlacesOfWork         mdoc.ElementIdentifier = "places_of_work"
	Legislation          mdoc.ElementIdentifier = "legislation"
	EmploymentDetails    mdoc.ElementIdentifier = "employment_details"
	CompetentInstitution mdoc.ElementIdentifier = "competent_institution"
	CredentialHolder     mdoc.ElementIdentifier = "credential_holder"
	CredentialSubject    mdoc.ElementIdentifier = "subject"
)

// AgeThresholds are the age_over_NN elements the issuer derives from birth_date.
var AgeThresholds = []int{13, 16, 18, 21, 25, 60, 62, 65, 68}

func AgeOver(age int) (mdoc.ElementIdentifier, error) {
	if age < 0 || age > 99 {
		return mdoc.ElementIdentifier(""), fmt.Errorf("unsupported range of age: %v", age)
	}
	return mdoc.ElementIdentifier(fmt.Sprintf("age_over_%d", age)), nil
}
