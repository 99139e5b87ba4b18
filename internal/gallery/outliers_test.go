package gallery

import "testing"

// vec builds a 4-dim vector around a base value with a small offset, so test
// clusters have controlled distances.
func vec(base, offset float32) []float32 {
	return []float32{base + offset, base, base, base}
}

func TestOutliers_EmptyAndSingleEntry(t *testing.T) {
	ix := NewIndex()

	if got := Outliers(ix, 0.5); got != nil {
		t.Errorf("expected no findings for empty index, got %v", got)
	}

	ix.Add("S1", vec(0, 0))
	if got := Outliers(ix, 0.5); got != nil {
		t.Errorf("expected no findings for single entry, got %v", got)
	}
}

func TestOutliers_ConfusableStudents(t *testing.T) {
	ix := NewIndex()
	// Two different students nearly on top of each other.
	ix.Add("S1", vec(0, 0))
	ix.Add("S2", vec(0, 0.01))
	// A third student far away from both, within nothing.
	ix.Add("S3", vec(10, 0))
	ix.Add("S3", vec(10, 0.01))

	findings := Outliers(ix, 0.5)

	confusable := 0
	for _, f := range findings {
		if f.Reason == ReasonConfusable {
			confusable++
			if f.StudentID == f.NearestStudentID {
				t.Errorf("confusable finding against same student: %+v", f)
			}
			if f.NearestDistance >= 0.5 {
				t.Errorf("confusable finding above threshold: %+v", f)
			}
		}
	}

	// S1 and S2 should each flag the other.
	if confusable != 2 {
		t.Errorf("expected 2 confusable findings, got %d (%v)", confusable, findings)
	}
}

func TestOutliers_IsolatedEntry(t *testing.T) {
	ix := NewIndex()
	// A tight pair of same-student entries plus one entry far from everything.
	ix.Add("S1", vec(0, 0))
	ix.Add("S1", vec(0, 0.01))
	ix.Add("S2", vec(50, 0))

	findings := Outliers(ix, 0.5)

	var isolated []Outlier
	for _, f := range findings {
		if f.Reason == ReasonIsolated {
			isolated = append(isolated, f)
		}
	}

	if len(isolated) != 1 || isolated[0].StudentID != "S2" {
		t.Errorf("expected exactly S2 flagged as isolated, got %v", findings)
	}
}

func TestOutliers_CleanGallery(t *testing.T) {
	ix := NewIndex()
	// Each student forms its own tight cluster, clusters moderately separated:
	// neither confusable (inter-cluster distance > threshold) nor isolated
	// (intra-cluster distance well under 2x threshold).
	ix.Add("S1", vec(0, 0))
	ix.Add("S1", vec(0, 0.05))
	ix.Add("S2", vec(2, 0))
	ix.Add("S2", vec(2, 0.05))

	if findings := Outliers(ix, 0.5); len(findings) != 0 {
		t.Errorf("expected clean gallery, got findings %v", findings)
	}
}
