// Load generator for testing Egret with synthetic OPD claims.
//
// Usage:
//   go run cmd/claimgen/main.go -url http://localhost:8080 -count 1000
//
// This tool:
//   1. Generates synthetic claims across a mix of scenarios (clean,
//      excluded items, waiting period, over limit, fraud signals)
//   2. Submits each claim to Egret for adjudication
//   3. Reports the decision mix, approval amounts, and latency
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

// ClaimRequest mirrors the Egret API request format.
type ClaimRequest struct {
	MemberID        string        `json:"memberId"`
	MemberName      string        `json:"memberName"`
	TreatmentDate   string        `json:"treatmentDate"`
	ClaimAmount     float64       `json:"claimAmount"`
	Hospital        string        `json:"hospital,omitempty"`
	CashlessRequest bool          `json:"cashlessRequest"`
	MemberJoinDate  string        `json:"memberJoinDate,omitempty"`
	Extracted       ExtractedData `json:"extracted"`
}

// ExtractedData mirrors the document extraction payload.
type ExtractedData struct {
	Diagnosis          string             `json:"diagnosis"`
	Medicines          []string           `json:"medicines,omitempty"`
	Tests              []string           `json:"tests,omitempty"`
	Treatments         []string           `json:"treatments,omitempty"`
	ConsultationFee    float64            `json:"consultationFee"`
	PharmacyAmount     float64            `json:"pharmacyAmount"`
	DiagnosticAmount   float64            `json:"diagnosticAmount"`
	LineItems          map[string]float64 `json:"lineItems,omitempty"`
	DoctorRegistration string             `json:"doctorRegistration,omitempty"`
	HasPrescription    bool               `json:"hasPrescription"`
	HasBill            bool               `json:"hasBill"`
}

// SubmitResponse is the Egret API response format.
type SubmitResponse struct {
	ClaimID string `json:"claimId"`
	Status  string `json:"status"`
	Result  *struct {
		Decision       string  `json:"decision"`
		ApprovedAmount float64 `json:"approvedAmount"`
		Confidence     float64 `json:"confidenceScore"`
	} `json:"result,omitempty"`
}

// Metrics tracks load generation results.
type Metrics struct {
	Approved     int64
	Partial      int64
	Rejected     int64
	ManualReview int64
	Accepted     int64 // async mode acknowledgements

	TotalSubmitted int64
	TotalErrors    int64

	TotalApprovedAmount int64 // paise, to keep atomic math integral
	ProcessingTimeMs    int64
}

// scenario generates one synthetic claim of a given kind.
type scenario struct {
	name   string
	weight int
	build  func(r *rand.Rand, memberID string) ClaimRequest
}

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "Egret base URL")
	tenantID := flag.String("tenant", "claimgen-test", "Tenant ID for requests")
	count := flag.Int("count", 1000, "Number of claims to submit")
	workers := flag.Int("workers", 10, "Number of concurrent workers")
	members := flag.Int("members", 200, "Size of the synthetic member pool")
	seed := flag.Int64("seed", 42, "Random seed for reproducible runs")
	verbose := flag.Bool("verbose", false, "Print each claim result")
	flag.Parse()

	fmt.Println("╔═══════════════════════════════════════════════════════════════╗")
	fmt.Println("║            EGRET CLAIMGEN - Synthetic OPD Claims              ║")
	fmt.Println("╚═══════════════════════════════════════════════════════════════╝")
	fmt.Printf("\nEgret URL:  %s\n", *baseURL)
	fmt.Printf("Tenant ID:  %s\n", *tenantID)
	fmt.Printf("Claims:     %d\n", *count)
	fmt.Printf("Workers:    %d\n", *workers)
	fmt.Printf("Members:    %d\n", *members)
	fmt.Printf("Seed:       %d\n", *seed)
	fmt.Println()

	// Check Egret is running
	if err := checkHealth(*baseURL); err != nil {
		fmt.Printf("ERROR: Egret not reachable at %s: %v\n", *baseURL, err)
		fmt.Println("\nMake sure Egret is running:")
		fmt.Println("  cd egret && go run cmd/egret/main.go")
		os.Exit(1)
	}
	fmt.Println("✓ Egret is healthy")

	// Generate claims up front so the run is reproducible
	rng := rand.New(rand.NewSource(*seed))
	claims := make([]ClaimRequest, 0, *count)
	for i := 0; i < *count; i++ {
		memberID := fmt.Sprintf("MEM-%04d", rng.Intn(*members))
		claims = append(claims, pickScenario(rng).build(rng, memberID))
	}
	fmt.Printf("✓ Generated %d claims\n", len(claims))

	fmt.Printf("\nSubmitting with %d workers...\n", *workers)
	startTime := time.Now()
	metrics := runLoad(claims, *baseURL, *tenantID, *workers, *verbose)
	duration := time.Since(startTime)

	printResults(metrics, duration)
}

func checkHealth(baseURL string) error {
	resp, err := http.Get(baseURL + "/health")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unhealthy: status %d", resp.StatusCode)
	}
	return nil
}

var scenarios = []scenario{
	{name: "clean consultation", weight: 40, build: func(r *rand.Rand, memberID string) ClaimRequest {
		amount := 600 + float64(r.Intn(1400))
		return baseClaim(memberID, amount, "viral fever", ExtractedData{
			Diagnosis:       "viral fever",
			Medicines:       []string{"Paracetamol 500mg", "Cetirizine"},
			ConsultationFee: amount * 0.6,
			PharmacyAmount:  amount * 0.4,
			HasPrescription: true,
			HasBill:         true,
		})
	}},
	{name: "network cashless", weight: 15, build: func(r *rand.Rand, memberID string) ClaimRequest {
		amount := 800 + float64(r.Intn(1200))
		req := baseClaim(memberID, amount, "acute bronchitis", ExtractedData{
			Diagnosis:       "acute bronchitis",
			Medicines:       []string{"Azithromycin", "Salbutamol inhaler"},
			ConsultationFee: amount,
			HasPrescription: true,
			HasBill:         true,
		})
		req.Hospital = "Apollo Clinic"
		req.CashlessRequest = true
		return req
	}},
	{name: "excluded whitening", weight: 10, build: func(r *rand.Rand, memberID string) ClaimRequest {
		amount := 2500 + float64(r.Intn(2000))
		return baseClaim(memberID, amount, "dental checkup", ExtractedData{
			Diagnosis:  "dental checkup",
			Treatments: []string{"dental cleaning", "teeth whitening"},
			LineItems: map[string]float64{
				"dental cleaning": amount * 0.4,
				"teeth whitening": amount * 0.6,
			},
			HasPrescription: true,
			HasBill:         true,
		})
	}},
	{name: "waiting period", weight: 10, build: func(r *rand.Rand, memberID string) ClaimRequest {
		amount := 900 + float64(r.Intn(1500))
		req := baseClaim(memberID, amount, "type 2 diabetes", ExtractedData{
			Diagnosis:       "type 2 diabetes",
			Medicines:       []string{"Metformin 500mg"},
			ConsultationFee: amount,
			HasPrescription: true,
			HasBill:         true,
		})
		// Joined 45 days before treatment: past initial wait, inside the
		// 90-day diabetes wait
		req.MemberJoinDate = daysBefore(req.TreatmentDate, 45)
		return req
	}},
	{name: "over per-claim limit", weight: 10, build: func(r *rand.Rand, memberID string) ClaimRequest {
		amount := 6000 + float64(r.Intn(4000))
		return baseClaim(memberID, amount, "lower back pain", ExtractedData{
			Diagnosis:        "lower back pain",
			Tests:            []string{"x-ray lumbar spine"},
			ConsultationFee:  1000,
			DiagnosticAmount: amount - 1000,
			HasPrescription:  true,
			HasBill:          true,
		})
	}},
	{name: "missing documents", weight: 5, build: func(r *rand.Rand, memberID string) ClaimRequest {
		amount := 700 + float64(r.Intn(800))
		return baseClaim(memberID, amount, "migraine", ExtractedData{
			Diagnosis:       "migraine",
			ConsultationFee: amount,
			HasPrescription: true,
			HasBill:         false,
		})
	}},
	{name: "fraud signals", weight: 10, build: func(r *rand.Rand, memberID string) ClaimRequest {
		// Round amounts and a malformed doctor registration
		req := baseClaim(memberID, 4500, "general checkup", ExtractedData{
			Diagnosis:          "general checkup",
			Medicines:          manyMedicines(12),
			ConsultationFee:    500,
			PharmacyAmount:     3000,
			DiagnosticAmount:   1000,
			DoctorRegistration: "FAKE/12/99",
			HasPrescription:    true,
			HasBill:            true,
		})
		return req
	}},
}

func pickScenario(r *rand.Rand) scenario {
	total := 0
	for _, s := range scenarios {
		total += s.weight
	}
	n := r.Intn(total)
	for _, s := range scenarios {
		n -= s.weight
		if n < 0 {
			return s
		}
	}
	return scenarios[0]
}

func baseClaim(memberID string, amount float64, diagnosis string, extracted ExtractedData) ClaimRequest {
	treatment := time.Now().UTC().AddDate(0, 0, -7).Format("2006-01-02")
	return ClaimRequest{
		MemberID:      memberID,
		MemberName:    "Member " + memberID,
		TreatmentDate: treatment,
		ClaimAmount:   amount,
		Extracted:     extracted,
	}
}

func daysBefore(date string, days int) string {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		t = time.Now().UTC()
	}
	return t.AddDate(0, 0, -days).Format("2006-01-02")
}

func manyMedicines(n int) []string {
	meds := make([]string, n)
	for i := range meds {
		meds[i] = fmt.Sprintf("Medicine %d", i+1)
	}
	return meds
}

func runLoad(claims []ClaimRequest, baseURL, tenantID string, numWorkers int, verbose bool) *Metrics {
	metrics := &Metrics{}

	work := make(chan ClaimRequest, 100)
	var wg sync.WaitGroup

	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			client := &http.Client{Timeout: 10 * time.Second}

			for claim := range work {
				start := time.Now()
				result, err := submitClaim(client, baseURL, tenantID, claim)
				elapsed := time.Since(start).Milliseconds()

				atomic.AddInt64(&metrics.ProcessingTimeMs, elapsed)
				atomic.AddInt64(&metrics.TotalSubmitted, 1)

				if err != nil {
					atomic.AddInt64(&metrics.TotalErrors, 1)
					if verbose {
						fmt.Printf("ERROR: %s -> %v\n", claim.MemberID, err)
					}
					continue
				}

				switch result.Status {
				case "APPROVED":
					atomic.AddInt64(&metrics.Approved, 1)
				case "PARTIAL":
					atomic.AddInt64(&metrics.Partial, 1)
				case "REJECTED":
					atomic.AddInt64(&metrics.Rejected, 1)
				case "MANUAL_REVIEW":
					atomic.AddInt64(&metrics.ManualReview, 1)
				case "ACCEPTED":
					atomic.AddInt64(&metrics.Accepted, 1)
				}

				if result.Result != nil {
					atomic.AddInt64(&metrics.TotalApprovedAmount, int64(result.Result.ApprovedAmount*100))
				}

				if verbose {
					approved := 0.0
					if result.Result != nil {
						approved = result.Result.ApprovedAmount
					}
					fmt.Printf("%-9s | Member: %-9s | Claimed: ₹%9.2f | Approved: ₹%9.2f | %dms\n",
						result.Status,
						claim.MemberID,
						claim.ClaimAmount,
						approved,
						elapsed,
					)
				}
			}
		}()
	}

	for _, claim := range claims {
		work <- claim
	}
	close(work)

	wg.Wait()

	return metrics
}

func submitClaim(client *http.Client, baseURL, tenantID string, claim ClaimRequest) (*SubmitResponse, error) {
	body, err := json.Marshal(claim)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequest(http.MethodPost, baseURL+"/claims", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Tenant-ID", tenantID)

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	var result SubmitResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}

	return &result, nil
}

func printResults(m *Metrics, duration time.Duration) {
	fmt.Println("\n╔═══════════════════════════════════════════════════════════════╗")
	fmt.Println("║                       CLAIMGEN RESULTS                        ║")
	fmt.Println("╚═══════════════════════════════════════════════════════════════╝")

	fmt.Printf("\n📊 SUBMISSION STATISTICS\n")
	fmt.Printf("   Total Submitted:  %d\n", m.TotalSubmitted)
	fmt.Printf("   Errors:           %d\n", m.TotalErrors)

	decided := m.Approved + m.Partial + m.Rejected + m.ManualReview
	fmt.Printf("\n⚖️  DECISION MIX\n")
	if m.Accepted > 0 {
		fmt.Printf("   Accepted (async): %d\n", m.Accepted)
	}
	if decided > 0 {
		fmt.Printf("   Approved:       %6d (%.1f%%)\n", m.Approved, 100*float64(m.Approved)/float64(decided))
		fmt.Printf("   Partial:        %6d (%.1f%%)\n", m.Partial, 100*float64(m.Partial)/float64(decided))
		fmt.Printf("   Rejected:       %6d (%.1f%%)\n", m.Rejected, 100*float64(m.Rejected)/float64(decided))
		fmt.Printf("   Manual Review:  %6d (%.1f%%)\n", m.ManualReview, 100*float64(m.ManualReview)/float64(decided))
		fmt.Printf("   Total Approved: ₹%.2f\n", float64(m.TotalApprovedAmount)/100)
	}

	fmt.Printf("\n⏱️  PERFORMANCE\n")
	fmt.Printf("   Total Duration:   %v\n", duration.Round(time.Millisecond))
	if m.TotalSubmitted > 0 {
		avgMs := float64(m.ProcessingTimeMs) / float64(m.TotalSubmitted)
		cps := float64(m.TotalSubmitted) / duration.Seconds()
		fmt.Printf("   Avg Latency:      %.2f ms\n", avgMs)
		fmt.Printf("   Throughput:       %.2f claims/sec\n", cps)
	}

	fmt.Println()
}
