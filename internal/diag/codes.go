package diag

import (
	"fmt"
)

type Code uint16

const (
	// Неизвестная ошибка - на первое время
	UnknownCode Code = 0

	// Конфигурация: обнаруживаются до начала слияния
	CfgInfo                  Code = 1000
	CfgUnionWithAllowDup     Code = 1001
	CfgUnionWithInternalize  Code = 1002
	CfgAttrFileWithCopyAttrs Code = 1003
	CfgNoInputs              Code = 1004
	CfgBadExemptionPattern   Code = 1005
	CfgDuplicateInput        Code = 1006
	CfgBadTargetKind         Code = 1007
	CfgBadAttributePolicy    Code = 1009

	// Структурные конфликты: слияние прерывается
	MrgInfo               Code = 2000
	MrgDuplicateType      Code = 2001
	MrgPEKindNotILOnly    Code = 2002
	MrgPEKindIncompatible Code = 2003
	MrgEntryPointLost     Code = 2004
	MrgUnknownInput       Code = 2006
	MrgCancelled          Code = 2007

	// Восстановимые аномалии: пропускаем и продолжаем
	AnmInfo                Code = 3000
	AnmResourceNotFound    Code = 3001
	AnmDuplicateResource   Code = 3002
	AnmUnresolvedReference Code = 3003
	AnmUnresolvedBaseType  Code = 3004

	// Политики: не ошибки, но вызывающему стоит знать
	PolInfo                Code = 4000
	PolTypeRenamed         Code = 4001
	PolDowngradedToLibrary Code = 4002
	PolStrongNameLost      Code = 4003
	PolClosureAdded        Code = 4004
	PolResourceDropped     Code = 4005
	PolZeroPEKindForced    Code = 4007
	PolTypeInternalized    Code = 4008

	// Образы модулей на диске
	ImgInfo           Code = 5000
	ImgBadMagic       Code = 5001
	ImgSchemaMismatch Code = 5002
	ImgChecksum       Code = 5003
	ImgDecode         Code = 5004
	ImgIO             Code = 5005
)

var (
	codeDescription = map[Code]string{
		UnknownCode:              "Unknown error",
		CfgInfo:                  "Configuration information",
		CfgUnionWithAllowDup:     "Union merge combined with duplicate renaming",
		CfgUnionWithInternalize:  "Union merge combined with internalization",
		CfgAttrFileWithCopyAttrs: "Attribute file combined with copying attributes",
		CfgNoInputs:              "No input assemblies",
		CfgBadExemptionPattern:   "Invalid internalize exemption pattern",
		CfgDuplicateInput:        "Assembly listed twice",
		CfgBadTargetKind:         "Invalid target kind",
		CfgBadAttributePolicy:    "Invalid attribute policy",
		MrgInfo:                  "Merge information",
		MrgDuplicateType:         "Duplicate type",
		MrgPEKindNotILOnly:       "Input is not IL-only",
		MrgPEKindIncompatible:    "Incompatible platform kinds",
		MrgEntryPointLost:        "Entry point could not be transferred",
		MrgUnknownInput:          "Unknown input assembly",
		MrgCancelled:             "Merge cancelled",
		AnmInfo:                  "Anomaly information",
		AnmResourceNotFound:      "Resource for renamed type not found",
		AnmDuplicateResource:     "Duplicate resource name",
		AnmUnresolvedReference:   "Unresolved assembly reference",
		AnmUnresolvedBaseType:    "Unresolved base type",
		PolInfo:                  "Policy information",
		PolTypeRenamed:           "Type renamed",
		PolDowngradedToLibrary:   "Output downgraded to library",
		PolStrongNameLost:        "Strong name lost",
		PolClosureAdded:          "Assembly added by closure",
		PolResourceDropped:       "Duplicate resource dropped",
		PolZeroPEKindForced:      "IL-only flag forced",
		PolTypeInternalized:      "Type internalized",
		ImgInfo:                  "Image information",
		ImgBadMagic:              "Not a module image",
		ImgSchemaMismatch:        "Unsupported image schema",
		ImgChecksum:              "Image checksum mismatch",
		ImgDecode:                "Image decode failure",
		ImgIO:                    "Image I/O failure",
	}
)

func (c Code) ID() string {
	switch ic := int(c); {
	case ic >= 1000 && ic < 2000:
		return fmt.Sprintf("CFG%04d", ic)
	case ic >= 2000 && ic < 3000:
		return fmt.Sprintf("MRG%04d", ic)
	case ic >= 3000 && ic < 4000:
		return fmt.Sprintf("ANM%04d", ic)
	case ic >= 4000 && ic < 5000:
		return fmt.Sprintf("POL%04d", ic)
	case ic >= 5000 && ic < 6000:
		return fmt.Sprintf("IMG%04d", ic)
	}
	return "E0000"
}

func (c Code) Title() string {
	desc, ok := codeDescription[c]
	if !ok {
		return codeDescription[Code(0)]
	}
	return desc
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}
