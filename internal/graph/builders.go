package graph

import (
	"github.com/gyeh/ehiledger/internal/model"
	"github.com/gyeh/ehiledger/internal/normalize"
)

// Column names follow the Epic EHI export. Where a concept appears under
// more than one name across tables, the alternatives are listed in order
// of preference.

func buildEncounter(rd *model.Reader) *Encounter {
	e := &Encounter{
		ID:         identity(rd, "enc", "PAT_ENC_CSN_ID"),
		Date:       rd.Time("CONTACT_DATE", "EFFECTIVE_DATE_DT"),
		Type:       rd.Str("ENC_TYPE_C_NAME"),
		Department: rd.Str("DEPARTMENT_NAME", "DEPARTMENT_ID_EXTERNAL_NAME"),
		Provider:   rd.Str("VISIT_PROV_NAME", "VISIT_PROV_ID_NAME"),
		Reason:     rd.Str("REASON_VISIT_NAME", "ENC_REASON_NAME"),
	}
	csn := &e.ID
	for i, r := range rd.Children("orders") {
		e.Orders = append(e.Orders, buildOrder(model.NewReaderAt(r, i), csn))
	}
	for i, r := range rd.Children("diagnoses") {
		e.Diagnoses = append(e.Diagnoses, buildDiagnosis(model.NewReaderAt(r, i)))
	}
	for i, r := range rd.Children("notes") {
		e.Notes = append(e.Notes, buildNote(model.NewReaderAt(r, i)))
	}
	e.Orders = nonNil(e.Orders)
	e.Diagnoses = nonNil(e.Diagnoses)
	e.Notes = nonNil(e.Notes)
	e.Raw = rd.Rest()
	return e
}

func buildOrder(rd *model.Reader, csn *string) *Order {
	o := &Order{
		ID:            identity(rd, "ord", "ORDER_PROC_ID", "ORDER_ID"),
		EncounterID:   orDefault(rd.ID("PAT_ENC_CSN_ID"), csn),
		Description:   rd.Str("DESCRIPTION", "DISPLAY_NAME"),
		ProcedureCode: rd.Str("PROC_CODE", "PROC_ID"),
		Status:        rd.Str("ORDER_STATUS_C_NAME"),
		OrderedAt:     rd.Time("ORDERING_DATE", "ORDER_TIME"),
	}
	for i, r := range rd.Children("results") {
		o.Results = append(o.Results, buildResult(model.NewReaderAt(r, i), &o.ID))
	}
	o.Results = nonNil(o.Results)
	o.Raw = rd.Rest()
	return o
}

func buildResult(rd *model.Reader, orderID *string) *Result {
	res := &Result{
		Line:      rd.Int("LINE", "ORD_LINE"),
		Component: rd.Str("COMPONENT_ID_NAME", "COMPONENT_NAME"),
		Value:     rd.Str("ORD_VALUE", "VALUE"),
		Unit:      rd.Str("REFERENCE_UNIT", "UNIT"),
		Flag:      rd.Str("RESULT_FLAG_C_NAME"),
		ResultAt:  rd.Time("RESULT_TIME", "RESULT_DATE"),
	}
	if id := rd.ID("RESULT_ID"); id != nil {
		res.ID = *id
	} else {
		res.ID = lineID(rd, "res", orderID, res.Line)
	}
	rd.ID("ORDER_PROC_ID")
	res.Raw = rd.Rest()
	return res
}

func buildDiagnosis(rd *model.Reader) *Diagnosis {
	d := &Diagnosis{
		ID:      identity(rd, "dx", "DX_ID"),
		Line:    rd.Int("LINE"),
		Name:    rd.Str("DX_NAME", "DX_ID_DX_NAME"),
		Code:    normalize.NormalizeCode(rd.Str("ICD10_CODE", "CURRENT_ICD10_LIST")),
		Primary: rd.Flag("PRIMARY_DX_YN"),
	}
	rd.ID("PAT_ENC_CSN_ID")
	d.Raw = rd.Rest()
	return d
}

func buildNote(rd *model.Reader) *Note {
	n := &Note{
		ID:        identity(rd, "note", "NOTE_ID"),
		Type:      rd.Str("NOTE_TYPE_C_NAME", "IP_NOTE_TYPE_C_NAME"),
		Author:    rd.Str("AUTHOR_NAME", "CURRENT_AUTHOR_ID_NAME"),
		CreatedAt: rd.Time("CREATE_INSTANT_DTTM", "ENTRY_INSTANT_DTTM"),
		Text:      rd.Str("NOTE_TEXT", "TEXT"),
	}
	rd.ID("PAT_ENC_CSN_ID")
	n.Raw = rd.Rest()
	return n
}

func buildAllergy(rd *model.Reader) *Allergy {
	a := &Allergy{
		ID:          identity(rd, "alg", "ALLERGY_ID"),
		Allergen:    rd.Str("ALLERGEN_ID_ALLERGEN_NAME", "ALLERGEN_NAME"),
		Reaction:    rd.Str("REACTION_NAME", "REACTION"),
		Severity:    rd.Str("SEVERITY_C_NAME", "ALLERGY_SEVERITY_C_NAME"),
		Status:      rd.Str("ALRGY_STATUS_C_NAME"),
		NotedDate:   rd.Time("DATE_NOTED"),
		RecordedCSN: rd.ID("ALLERGY_PAT_CSN", "PAT_ENC_CSN_ID"),
	}
	a.Raw = rd.Rest()
	return a
}

func buildProblem(rd *model.Reader) *Problem {
	p := &Problem{
		ID:           identity(rd, "prob", "PROBLEM_LIST_ID"),
		Name:         rd.Str("DX_ID_DX_NAME", "DX_NAME", "DESCRIPTION"),
		Code:         normalize.NormalizeCode(rd.Str("ICD10_CODE")),
		Status:       rd.Str("PROBLEM_STATUS_C_NAME"),
		NotedDate:    rd.Time("NOTED_DATE", "DATE_OF_ENTRY"),
		ResolvedDate: rd.Time("RESOLVED_DATE"),
		RecordedCSN:  rd.ID("PROBLEM_EPT_CSN", "PAT_ENC_CSN_ID"),
	}
	p.Raw = rd.Rest()
	return p
}

func buildMedication(rd *model.Reader) *Medication {
	m := &Medication{
		ID:          identity(rd, "med", "ORDER_MED_ID"),
		Name:        rd.Str("MEDICATION_ID_MEDICATION_NAME", "DESCRIPTION", "DISPLAY_NAME"),
		Sig:         rd.Str("SIG", "PATIENT_SIG"),
		Route:       rd.Str("MED_ROUTE_C_NAME", "ROUTE"),
		Status:      rd.Str("ORDER_STATUS_C_NAME"),
		StartDate:   rd.Time("START_DATE", "ORDER_START_TIME"),
		EndDate:     rd.Time("END_DATE", "ORDER_END_TIME"),
		EncounterID: rd.ID("PAT_ENC_CSN_ID"),
	}
	m.Raw = rd.Rest()
	return m
}

func buildImmunization(rd *model.Reader) *Immunization {
	i := &Immunization{
		ID:          identity(rd, "imm", "IMMUNE_ID"),
		Name:        rd.Str("IMMUNZATN_ID_NAME", "IMMUNIZATION_NAME", "NAME"),
		Dose:        rd.Str("DOSE"),
		Date:        rd.Time("IMMUNE_DATE", "ADMIN_DATE"),
		EncounterID: rd.ID("IMM_CSN", "PAT_ENC_CSN_ID"),
	}
	i.Raw = rd.Rest()
	return i
}

func buildMessage(rd *model.Reader) *Message {
	m := &Message{
		ID:          identity(rd, "msg", "MESSAGE_ID"),
		Subject:     rd.Str("SUBJECT"),
		Type:        rd.Str("MSG_TYPE_C_NAME", "TOFROM_PAT_C_NAME"),
		Body:        rd.Str("MESSAGE_TEXT", "BODY"),
		SentAt:      rd.Time("CREATED_TIME", "UPDATE_DATE"),
		EncounterID: rd.ID("PAT_ENC_CSN_ID"),
		OrderID:     rd.ID("ORDER_ID", "ORDER_PROC_ID"),
	}
	m.Raw = rd.Rest()
	return m
}

func buildCoverage(rd *model.Reader) *Coverage {
	c := &Coverage{
		ID:            identity(rd, "cvg", "COVERAGE_ID"),
		Payer:         rd.Str("PAYOR_ID_PAYOR_NAME", "PAYOR_NAME"),
		Plan:          rd.Str("PLAN_ID_BENEFIT_PLAN_NAME", "BENEFIT_PLAN_NAME"),
		MemberID:      rd.Str("SUBSCR_NUM", "MEM_NUMBER"),
		EffectiveFrom: rd.Time("CVG_EFF_DT", "EFF_DATE"),
		EffectiveTo:   rd.Time("CVG_TERM_DT", "TERM_DATE"),
	}
	c.Raw = rd.Rest()
	return c
}

func buildSnapshot(kind string, rd *model.Reader) *Snapshot {
	s := &Snapshot{
		ID:          identity(rd, kind, "HX_ID"),
		Kind:        kind,
		Date:        rd.Time("CONTACT_DATE", "HX_DATE"),
		ContactCSN:  rd.ID("PAT_ENC_CSN_ID"),
		ReviewedCSN: rd.ID("HX_LNK_ENC_CSN", "REVIEWED_DURING_CSN"),
	}
	for i, r := range rd.Children("items") {
		s.Items = append(s.Items, buildHistoryItem(model.NewReaderAt(r, i)))
	}
	s.Items = nonNil(s.Items)
	s.Raw = rd.Rest()
	return s
}

func buildHistoryItem(rd *model.Reader) *HistoryItem {
	it := &HistoryItem{
		Line:   rd.Int("LINE"),
		Name:   rd.Str("NAME", "PROC_NAME", "MEDICAL_HX_C_NAME", "RELATION_C_NAME"),
		Value:  rd.Str("VALUE", "STATUS_C_NAME", "MEDICAL_OTHER"),
		Date:   rd.Time("DATE", "SURGICAL_HX_DATE", "HX_DATE"),
		Detail: rd.Str("COMMENTS", "COMMENT", "DETAIL"),
	}
	it.Raw = rd.Rest()
	return it
}

// buildCharge returns the charge and any action rows nested under it.
func buildCharge(rd *model.Reader) (*Charge, []model.Row) {
	c := &Charge{
		ID:                identity(rd, "tx", "TX_ID"),
		Amount:            rd.Money("AMOUNT", "TX_AMOUNT"),
		OutstandingAmount: rd.Money("OUTSTANDING_AMT", "OUTSTANDING_AMOUNT"),
		ServiceDate:       rd.Time("SERVICE_DATE"),
		PostDate:          rd.Time("POST_DATE"),
		ProcedureCode:     normalize.NormalizeCode(rd.Str("CPT_CODE", "PROC_CODE", "PROC_ID")),
		ProcedureName:     rd.Str("PROC_NAME", "PROC_ID_PROC_NAME", "DESCRIPTION"),
		Modifiers: normalize.Modifiers(
			rd.Str("MODIFIER_ONE"), rd.Str("MODIFIER_TWO"),
			rd.Str("MODIFIER_THREE"), rd.Str("MODIFIER_FOUR"),
		),
		VisitNumber:   rd.ID("VISIT_NUMBER", "PB_VISIT_NUM"),
		AccountID:     rd.ID("ACCOUNT_ID"),
		InvoiceNumber: rd.Str("INVOICE_NUM", "INV_NUM"),
		VoidDate:      rd.Time("VOID_DATE"),
		OriginalTxID:  rd.ID("ORIG_REPOST_TX_ID"),
		RepostTxID:    rd.ID("REPOST_TX_ID"),
	}
	c.Voided = rd.Flag("IS_VOIDED_YN", "VOID_YN") || c.VoidDate != nil
	for i, r := range rd.Children("matches") {
		c.Matches = append(c.Matches, buildMatch(model.NewReaderAt(r, i)))
	}
	c.Matches = nonNil(c.Matches)
	nested := rd.Children("actions")
	c.Raw = rd.Rest()
	return c, nested
}

func buildMatch(rd *model.Reader) *Match {
	m := &Match{
		Line:            rd.Int("LINE"),
		Date:            rd.Time("MTCH_TX_HX_DT", "MTCH_TX_HX_DATE"),
		Amount:          rd.Money("MTCH_TX_HX_AMT"),
		InsuranceAmount: rd.Money("MTCH_TX_HX_INS_AMT"),
		PatientAmount:   rd.Money("MTCH_TX_HX_PAT_AMT"),
		MatchedTxID:     rd.ID("MTCH_TX_HX_ID"),
	}
	rd.ID("TX_ID")
	m.Raw = rd.Rest()
	return m
}

// buildAction hydrates an action row. parent supplies the charge id for
// action rows nested under their charge.
func buildAction(rd *model.Reader, parent *string) *Action {
	a := &Action{
		ChargeID:          orDefault(rd.ID("TX_ID", "CHARGE_TX_ID"), parent),
		Line:              rd.Int("LINE"),
		Type:              rd.Str("ACTION_TYPE_C_NAME", "ACTION_TYPE"),
		Amount:            rd.Money("ACTION_AMOUNT"),
		ReasonCode:        rd.Str("DENIAL_CODE_REMIT_CODE_NAME", "DENIAL_CODE", "ACTION_REMIT_CODES"),
		Date:              rd.Time("ACTION_DATE"),
		OutstandingBefore: rd.Money("OUT_AMOUNT_BEFORE"),
		OutstandingAfter:  rd.Money("OUT_AMOUNT_AFTER"),
	}
	if id := rd.ID("ACTION_ID"); id != nil {
		a.ID = *id
	} else {
		a.ID = lineID(rd, "act", a.ChargeID, a.Line)
	}
	a.Raw = rd.Rest()
	return a
}

func buildInvoice(rd *model.Reader) *Invoice {
	inv := &Invoice{
		ID:          identity(rd, "inv", "INVOICE_ID", "INV_ID"),
		Number:      rd.Str("INV_NUM", "INVOICE_NUM"),
		Payer:       rd.Str("PAYOR_ID_PAYOR_NAME", "PAYOR_NAME", "PAYER_NAME"),
		Status:      rd.Str("INV_STATUS_C_NAME", "STATUS"),
		Date:        rd.Time("INV_DATE", "CREATION_DATE"),
		ServiceFrom: rd.Time("FROM_SVC_DATE", "SVC_FROM_DATE"),
		ServiceTo:   rd.Time("TO_SVC_DATE", "SVC_TO_DATE"),
		Amount:      rd.Money("INV_TOTAL_AMT", "TOTAL_AMT"),
	}
	inv.ChargeIDs = memberCharges(rd)
	inv.Raw = rd.Rest()
	return inv
}

// memberCharges reads the invoice's charge membership. The "charges" child
// list is authoritative; "chargeIds" is read only when the list yields no
// ids, and otherwise stays in the raw payload.
func memberCharges(rd *model.Reader) []string {
	var ids []string
	seen := make(map[string]bool)
	add := func(id string) {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	for _, r := range rd.Children("charges") {
		if id := normalize.ID(firstPresent(r, "TX_ID", "CHARGE_TX_ID", "CHARGE_ID")); id != nil {
			add(*id)
		}
	}
	if len(ids) == 0 {
		for _, id := range rd.Strings("chargeIds") {
			add(id)
		}
	}
	return nonNil(ids)
}

func buildClaim(rd *model.Reader) *Claim {
	c := &Claim{
		ID:            identity(rd, "clm", "CLAIM_ID", "RECORD_ID", "CLM_VALUES_ID"),
		InvoiceNumber: rd.Str("INV_NUM", "INVOICE_NUM", "CLAIM_INVOICE_NUM"),
		Status:        rd.Str("CLAIM_STATUS_C_NAME", "CLM_STATUS_C_NAME", "STATUS"),
		TotalCharged:  rd.Money("TTL_CHG_AMT", "TOTAL_CHARGES", "CLAIM_CHRG_AMT"),
		FiledDate:     rd.Time("CLM_FILED_DATE", "FILED_DATE", "CREATION_DATE"),
		Payer:         rd.Str("PAYOR_NAME", "PAYER_NAME"),
	}
	c.Raw = rd.Rest()
	return c
}

func buildReconciliation(rd *model.Reader) *Reconciliation {
	r := &Reconciliation{
		ID:            identity(rd, "rec", "CLAIM_REC_ID", "RECORD_ID"),
		InvoiceNumber: rd.Str("INV_NUM", "INVOICE_NUM", "CLAIM_INVOICE_NUM"),
		Status:        rd.Str("CUR_CLM_STATUS_C_NAME", "CLAIM_STATUS_C_NAME", "STATUS"),
		Payer:         rd.Str("PAYOR_NAME", "PAYER_NAME"),
	}
	for i, row := range rd.Children("statusHistory") {
		r.StatusHistory = append(r.StatusHistory, buildStatusEntry(model.NewReaderAt(row, i)))
	}
	r.StatusHistory = nonNil(r.StatusHistory)
	r.Raw = rd.Rest()
	return r
}

func buildStatusEntry(rd *model.Reader) *StatusEntry {
	s := &StatusEntry{
		Line:   rd.Int("LINE"),
		Date:   rd.Time("STATUS_DATE", "CONTACT_DATE"),
		Status: rd.Str("CLM_STATUS_C_NAME", "STATUS_C_NAME", "STATUS"),
		Detail: rd.Str("STATUS_DETAIL", "CLM_STATUS_DETAIL", "DETAIL", "COMMENT"),
	}
	if key := rd.Float("CONTACT_DATE_REAL", "ORDER_KEY"); key != nil {
		s.OrderKey = *key
	}
	s.Raw = rd.Rest()
	return s
}

func buildRemittance(rd *model.Reader) *Remittance {
	r := &Remittance{
		ID:            identity(rd, "rmt", "IMAGE_ID", "REMIT_ID"),
		InvoiceNumber: rd.Str("INV_NUM", "INVOICE_NUM", "CLAIM_INVOICE_NUM"),
		ChargedAmount: rd.Money("CLAIM_CHRG_AMT", "CHARGED_AMOUNT"),
		PaidAmount:    rd.Money("CLAIM_PAID_AMT", "PAID_AMOUNT"),
		PaymentDate:   rd.Time("PAYMENT_DATE", "CREATION_DATE", "ADJUDICATION_DATE"),
		Payer:         rd.Str("PAYER_NAME", "PAYOR_NAME"),
		ClaimStatus:   rd.Str("CLAIM_STATUS_CODE", "CLM_STAT_CD"),
	}
	for i, row := range rd.Children("adjustments") {
		r.Adjustments = append(r.Adjustments, buildRemitAdjustment(model.NewReaderAt(row, i)))
	}
	r.Adjustments = nonNil(r.Adjustments)
	r.Raw = rd.Rest()
	return r
}

func buildRemitAdjustment(rd *model.Reader) *RemitAdjustment {
	a := &RemitAdjustment{
		Line:       rd.Int("LINE"),
		GroupCode:  rd.Str("CAS_GROUP_CODE", "GROUP_CODE"),
		ReasonCode: rd.Str("CAS_REASON_CODE", "REASON_CODE", "CARC"),
		Amount:     rd.Money("CAS_AMT", "ADJ_AMT", "AMOUNT"),
	}
	a.Raw = rd.Rest()
	return a
}

func buildEOBLine(rd *model.Reader) *EOBLine {
	l := &EOBLine{
		ID:            identity(rd, "eob", "EOB_LINE_ID", "EOB_ID"),
		ChargeID:      rd.ID("CHARGE_TX_ID", "TX_ID"),
		ProcedureCode: normalize.NormalizeCode(rd.Str("CPT_CODE", "PROC_CODE")),
		Billed:        rd.Money("CVD_AMT", "BILLED_AMT", "BILLED_AMOUNT"),
		Allowed:       rd.Money("ALLOWED_AMT", "ALLOWED_AMOUNT"),
		Paid:          rd.Money("PAID_AMT", "PAID_AMOUNT"),
		Deductible:    rd.Money("DED_AMT", "DEDUCTIBLE_AMOUNT"),
		Coinsurance:   rd.Money("COINS_AMT", "COINSURANCE_AMOUNT"),
		Copay:         rd.Money("COPAY_AMT", "COPAY_AMOUNT"),
		Date:          rd.Time("EOB_DATE", "PAYMENT_DATE", "POST_DATE"),
	}
	l.Raw = rd.Rest()
	return l
}

func buildPayment(rd *model.Reader) *Payment {
	p := &Payment{
		ID:       identity(rd, "pmt", "PAYMENT_TX_ID", "PAYMENT_ID"),
		ChargeID: rd.ID("CHARGE_TX_ID", "TX_ID"),
		Amount:   rd.Money("AMOUNT", "PAYMENT_AMOUNT"),
		PostDate: rd.Time("POST_DATE", "PAYMENT_DATE"),
		Source:   rd.Str("PAYMENT_SOURCE_C_NAME", "SOURCE"),
		Payer:    rd.Str("PAYOR_NAME", "PAYER_NAME"),
	}
	p.Raw = rd.Rest()
	return p
}

func buildCollectionEvent(rd *model.Reader) *CollectionEvent {
	ev := &CollectionEvent{
		ID:              identity(rd, "col", "EVENT_ID", "COLL_EVENT_ID"),
		VisitNumber:     rd.ID("VISIT_NUMBER", "PB_VISIT_NUM"),
		EncounterID:     rd.ID("PAT_ENC_CSN_ID"),
		WorkflowType:    rd.Str("WORKFLOW_TYPE_C_NAME", "EVENT_TYPE_C_NAME", "WORKFLOW_TYPE"),
		Date:            rd.Time("EVENT_DATE", "CONTACT_DATE", "EVENT_DTTM"),
		AmountDue:       rd.Money("AMOUNT_DUE", "PMT_DUE_AMT"),
		AmountCollected: rd.Money("AMOUNT_COLLECTED", "PMT_COLLECTED_AMT"),
	}
	ev.Raw = rd.Rest()
	return ev
}

func buildAccount(rd *model.Reader) *Account {
	a := &Account{
		ID:      identity(rd, "acct", "ACCOUNT_ID"),
		Name:    rd.Str("ACCOUNT_NAME"),
		Type:    rd.Str("ACCOUNT_TYPE_C_NAME"),
		Balance: rd.Money("TOTAL_BALANCE", "BALANCE"),
	}
	a.Raw = rd.Rest()
	return a
}

func buildBillingVisit(rd *model.Reader) *BillingVisit {
	v := &BillingVisit{
		ID:          identity(rd, "visit", "PB_VISIT_NUM", "VISIT_NUMBER"),
		EncounterID: rd.ID("PRIM_ENC_CSN_ID", "PAT_ENC_CSN_ID"),
	}
	v.Raw = rd.Rest()
	return v
}

func firstPresent(r model.Row, cols ...string) any {
	for _, c := range cols {
		if v, ok := r[c]; ok && v != nil {
			return v
		}
	}
	return nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
