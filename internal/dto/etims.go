package dto

import "github.com/shopspring/decimal"

// --- eTIMS wire DTOs ---
// Field names follow the authority's saveTrnsSales schema. Timestamps are
// strings in the authority formats: yyyyMMddHHmmss full, yyyyMMdd date-only.

// EtimsItem is one line of the sales payload.
type EtimsItem struct {
	ItemSeq  int             `json:"itemSeq"`
	ItemCd   string          `json:"itemCd"`
	ItemNm   string          `json:"itemNm"`
	Qty      decimal.Decimal `json:"qty"`
	Prc      decimal.Decimal `json:"prc"`
	SplyAmt  decimal.Decimal `json:"splyAmt"`
	DcRt     decimal.Decimal `json:"dcRt"`
	DcAmt    decimal.Decimal `json:"dcAmt"`
	TaxTyCd  string          `json:"taxTyCd"` // Category letter A..E
	TaxblAmt decimal.Decimal `json:"taxblAmt"`
	TaxAmt   decimal.Decimal `json:"taxAmt"`
	TotAmt   decimal.Decimal `json:"totAmt"`
}

// EtimsReceipt carries the customer-facing receipt trailer.
type EtimsReceipt struct {
	CustTin      *string `json:"custTin,omitempty"`
	RcptPbctDt   string  `json:"rcptPbctDt"` // yyyyMMddHHmmss
	TrdeNm       string  `json:"trdeNm"`
	Adrs         string  `json:"adrs"`
	TopMsg       string  `json:"topMsg"`
	BtmMsg       string  `json:"btmMsg"`
	PrchrAcptcYn string  `json:"prchrAcptcYn"`
}

// EtimsSalesRequest is the document payload submitted to the authority.
type EtimsSalesRequest struct {
	Tin          string          `json:"tin"`
	BhfID        string          `json:"bhfId"`
	InvcNo       int64           `json:"invcNo"`    // Allocated sequential number
	OrgInvcNo    int64           `json:"orgInvcNo"` // 0 for invoices; original number for credit notes when known
	TrdInvcNo    string          `json:"trdInvcNo"` // Trader's own document number
	CustTin      *string         `json:"custTin,omitempty"`
	CustNm       string          `json:"custNm"`
	SalesTyCd    string          `json:"salesTyCd"`
	RcptTyCd     string          `json:"rcptTyCd"` // "S" sale, "R" refund (credit note)
	PmtTyCd      string          `json:"pmtTyCd"`
	SalesSttsCd  string          `json:"salesSttsCd"`
	CfmDt        string          `json:"cfmDt"`   // yyyyMMddHHmmss
	SalesDt      string          `json:"salesDt"` // yyyyMMdd
	TotItemCnt   int             `json:"totItemCnt"`
	TaxblAmtA    decimal.Decimal `json:"taxblAmtA"`
	TaxblAmtB    decimal.Decimal `json:"taxblAmtB"`
	TaxblAmtC    decimal.Decimal `json:"taxblAmtC"`
	TaxblAmtD    decimal.Decimal `json:"taxblAmtD"`
	TaxblAmtE    decimal.Decimal `json:"taxblAmtE"`
	TaxRtA       decimal.Decimal `json:"taxRtA"`
	TaxRtB       decimal.Decimal `json:"taxRtB"`
	TaxRtC       decimal.Decimal `json:"taxRtC"`
	TaxRtD       decimal.Decimal `json:"taxRtD"`
	TaxRtE       decimal.Decimal `json:"taxRtE"`
	TaxAmtA      decimal.Decimal `json:"taxAmtA"`
	TaxAmtB      decimal.Decimal `json:"taxAmtB"`
	TaxAmtC      decimal.Decimal `json:"taxAmtC"`
	TaxAmtD      decimal.Decimal `json:"taxAmtD"`
	TaxAmtE      decimal.Decimal `json:"taxAmtE"`
	TotTaxblAmt  decimal.Decimal `json:"totTaxblAmt"`
	TotTaxAmt    decimal.Decimal `json:"totTaxAmt"`
	TotAmt       decimal.Decimal `json:"totAmt"`
	PrchrAcptcYn string          `json:"prchrAcptcYn"`
	Remark       string          `json:"remark,omitempty"`
	RegrID       string          `json:"regrId"`
	RegrNm       string          `json:"regrNm"`
	ModrID       string          `json:"modrId"`
	ModrNm       string          `json:"modrNm"`
	Receipt      EtimsReceipt    `json:"receipt"`
	ItemList     []EtimsItem     `json:"itemList"`
}

// EtimsResponseData is the business payload of a successful authority reply.
type EtimsResponseData struct {
	CurRcptNo   int64  `json:"curRcptNo"`
	TotRcptNo   int64  `json:"totRcptNo"`
	IntrlData   string `json:"intrlData"`
	RcptSign    string `json:"rcptSign"`
	SdcDateTime string `json:"sdcDateTime"` // yyyyMMddHHmmss
	SdcID       string `json:"sdcId"`
	MrcNo       string `json:"mrcNo"`
}

// EtimsResponse is the authority's reply envelope. ResultCd "000" is the
// sole success code; anything else is a business rejection.
type EtimsResponse struct {
	ResultCd  string             `json:"resultCd"`
	ResultMsg string             `json:"resultMsg"`
	ResultDt  string             `json:"resultDt"`
	Data      *EtimsResponseData `json:"data,omitempty"`
}

// IsSuccess reports whether the authority accepted the submission.
func (r *EtimsResponse) IsSuccess() bool {
	return r.ResultCd == "000"
}
