package lifecycle

import (
	"os"
	"path/filepath"

	"wingmand/internal/store"
	"wingmand/pkg/types"
)

const (
	oomDuringInferenceMessage = "The system ran out of memory while running the AI model."
	oomDuringLoadMessage      = "There is not enough available memory to load the AI model."
	modelFailedToLoadMessage  = "The AI model failed to load."
)

// reconcileResult reports what the previous run left behind, so Run can
// decide whether a kill file demands an unclean exit of its own.
type reconcileResult struct {
	killFileFound bool
	anyPreparing  bool
}

// reconcile inspects the sentinel files and the previous run's recorded
// WingmanServiceAppItem status, and repairs any Wingman row left in a
// non-terminal state, the way ResetAfterCrash does in the original control
// process. It runs once, at start-up, before the Downloader and Inference
// Supervisor are launched.
func reconcile(st *store.Store, homeDir string) (reconcileResult, error) {
	killPath := filepath.Join(homeDir, killFileName)
	exitPath := filepath.Join(homeDir, exitFileName)

	if _, err := os.Stat(killPath); err == nil {
		active, err := st.Wingmen.GetAllActive()
		if err != nil {
			return reconcileResult{}, err
		}
		anyPreparing := false
		for _, item := range active {
			if item.Status == types.WingmanPreparing {
				anyPreparing = true
			}
			item.Status = types.WingmanError
			item.Error = oomDuringInferenceMessage
			if err := st.Wingmen.Set(item); err != nil {
				return reconcileResult{}, err
			}
		}
		return reconcileResult{killFileFound: true, anyPreparing: anyPreparing}, nil
	}

	if _, err := os.Stat(exitPath); err == nil {
		active, err := st.Wingmen.GetAllActive()
		if err != nil {
			return reconcileResult{}, err
		}
		for _, item := range active {
			if item.Status == types.WingmanPreparing {
				item.Status = types.WingmanError
				item.Error = modelFailedToLoadMessage
				if err := st.Wingmen.Set(item); err != nil {
					return reconcileResult{}, err
				}
			}
		}
		return reconcileResult{}, nil
	}

	prev, err := st.Apps.GetWingmanServiceApp()
	if err != nil {
		return reconcileResult{}, err
	}

	active, err := st.Wingmen.GetAllActive()
	if err != nil {
		return reconcileResult{}, err
	}
	switch prev.Status {
	case types.AppInferring, types.AppPreparing, types.AppError:
		for _, item := range active {
			switch item.Status {
			case types.WingmanInferring:
				item.Status = types.WingmanError
				item.Error = oomDuringInferenceMessage
				if err := st.Wingmen.Set(item); err != nil {
					return reconcileResult{}, err
				}
			case types.WingmanPreparing:
				item.Status = types.WingmanError
				item.Error = oomDuringLoadMessage
				if err := st.Wingmen.Set(item); err != nil {
					return reconcileResult{}, err
				}
			}
		}
	default:
		for _, item := range active {
			if item.Status == types.WingmanPreparing {
				item.Status = types.WingmanError
				item.Error = modelFailedToLoadMessage
				if err := st.Wingmen.Set(item); err != nil {
					return reconcileResult{}, err
				}
			}
		}
	}
	return reconcileResult{}, nil
}

// removeSentinels deletes any sentinel files left from a previous run, the
// way Start() does before launching services.
func removeSentinels(homeDir string) {
	os.Remove(filepath.Join(homeDir, killFileName))
	os.Remove(filepath.Join(homeDir, exitFileName))
}
