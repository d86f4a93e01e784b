package provider

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/Harshitk-cp/clawguild/internal/domain"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/aws/smithy-go"
	"go.uber.org/zap"
)

// ec2API is the slice of the EC2 client the adapter uses.
type ec2API interface {
	RunInstances(ctx context.Context, in *ec2.RunInstancesInput, optFns ...func(*ec2.Options)) (*ec2.RunInstancesOutput, error)
	DescribeInstances(ctx context.Context, in *ec2.DescribeInstancesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error)
	TerminateInstances(ctx context.Context, in *ec2.TerminateInstancesInput, optFns ...func(*ec2.Options)) (*ec2.TerminateInstancesOutput, error)
	GetConsoleOutput(ctx context.Context, in *ec2.GetConsoleOutputInput, optFns ...func(*ec2.Options)) (*ec2.GetConsoleOutputOutput, error)
}

// AWSAdapter runs each deployment on one EC2 instance booted with the plan
// as user data. Instances live in the configured AWS region; provider ids
// look like aws-<instance id>.
type AWSAdapter struct {
	ec2          ec2API
	amiID        string
	instanceType string
	logger       *zap.Logger
}

func NewAWSAdapter(ctx context.Context, opts Options, logger *zap.Logger) (*AWSAdapter, error) {
	if opts.AWSAMIID == "" {
		return nil, fmt.Errorf("%w: AWS_AMI_ID is required for the aws provider", domain.ErrProviderNotConfigured)
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(opts.AWSRegion),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			opts.AWSAccessKeyID, opts.AWSSecretAccessKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return newAWSAdapter(ec2.NewFromConfig(cfg), opts, logger), nil
}

func newAWSAdapter(client ec2API, opts Options, logger *zap.Logger) *AWSAdapter {
	instanceType := opts.AWSInstanceType
	if instanceType == "" {
		instanceType = "t3.small"
	}
	return &AWSAdapter{
		ec2:          client,
		amiID:        opts.AWSAMIID,
		instanceType: instanceType,
		logger:       logger,
	}
}

func (a *AWSAdapter) ProviderName() string { return string(domain.ProviderAWS) }

func (a *AWSAdapter) Deploy(ctx context.Context, cfg domain.AgentConfig) (domain.DeploymentID, error) {
	out, err := a.ec2.RunInstances(ctx, &ec2.RunInstancesInput{
		ImageId:      aws.String(a.amiID),
		InstanceType: types.InstanceType(a.instanceType),
		MinCount:     aws.Int32(1),
		MaxCount:     aws.Int32(1),
		UserData:     aws.String(base64.StdEncoding.EncodeToString([]byte(userData(cfg)))),
		TagSpecifications: []types.TagSpecification{{
			ResourceType: types.ResourceTypeInstance,
			Tags: []types.Tag{
				{Key: aws.String("Name"), Value: aws.String(hostName(cfg))},
				{Key: aws.String("clawguild:agent"), Value: aws.String(cfg.Agent.ID.String())},
				{Key: aws.String("clawguild:runtime"), Value: aws.String(string(cfg.Runtime))},
			},
		}},
	})
	if err != nil {
		return domain.DeploymentID{}, fmt.Errorf("%w: run ec2 instance: %w", domain.ErrRemoteRejected, err)
	}
	if len(out.Instances) == 0 || aws.ToString(out.Instances[0].InstanceId) == "" {
		return domain.DeploymentID{}, fmt.Errorf("%w: RunInstances returned no instance", domain.ErrMalformedResponse)
	}

	instanceID := aws.ToString(out.Instances[0].InstanceId)
	a.logger.Info("ec2 instance launched", zap.String("instance", instanceID))
	return domain.DeploymentID{ProviderID: "aws-" + instanceID}, nil
}

func (a *AWSAdapter) GetStatus(ctx context.Context, id domain.DeploymentID) (domain.ProviderStatus, error) {
	instanceID, err := trimProviderPrefix("aws", id.ProviderID)
	if err != nil {
		return domain.ProviderStatus{}, err
	}

	out, err := a.ec2.DescribeInstances(ctx, &ec2.DescribeInstancesInput{InstanceIds: []string{instanceID}})
	if err != nil {
		if isInstanceNotFound(err) {
			return domain.ProviderStatus{Status: domain.DeploymentPending}, nil
		}
		return domain.ProviderStatus{}, fmt.Errorf("%w: describe ec2 instance: %w", domain.ErrRemoteRejected, err)
	}

	for _, r := range out.Reservations {
		for _, inst := range r.Instances {
			if aws.ToString(inst.InstanceId) != instanceID {
				continue
			}
			var state types.InstanceStateName
			if inst.State != nil {
				state = inst.State.Name
			}
			status := domain.ProviderStatus{Status: mapEC2State(state)}
			if dns := aws.ToString(inst.PublicDnsName); dns != "" {
				status.Endpoint = "http://" + dns + ":3000"
				status.GatewayURL = status.Endpoint + "/openclaw"
			}
			return status, nil
		}
	}
	return domain.ProviderStatus{Status: domain.DeploymentPending}, nil
}

func mapEC2State(s types.InstanceStateName) domain.DeploymentStatus {
	switch s {
	case types.InstanceStateNameRunning:
		return domain.DeploymentRunning
	case types.InstanceStateNamePending:
		return domain.DeploymentCreating
	case types.InstanceStateNameStopping, types.InstanceStateNameStopped,
		types.InstanceStateNameShuttingDown, types.InstanceStateNameTerminated:
		return domain.DeploymentFailed
	default:
		return domain.DeploymentPending
	}
}

func (a *AWSAdapter) Destroy(ctx context.Context, id domain.DeploymentID) error {
	instanceID, err := trimProviderPrefix("aws", id.ProviderID)
	if err != nil {
		return err
	}
	_, err = a.ec2.TerminateInstances(ctx, &ec2.TerminateInstancesInput{InstanceIds: []string{instanceID}})
	if err != nil && !isInstanceNotFound(err) {
		return fmt.Errorf("%w: terminate ec2 instance: %w", domain.ErrRemoteRejected, err)
	}
	return nil
}

// UpdateConfig is not possible without replacing the instance: user data is
// read once at boot.
func (a *AWSAdapter) UpdateConfig(ctx context.Context, id domain.DeploymentID, cfg domain.AgentConfig) error {
	return fmt.Errorf("%w: aws instances read configuration only at boot", domain.ErrUnsupported)
}

func (a *AWSAdapter) GetLogs(ctx context.Context, id domain.DeploymentID, maxLines int) ([]string, error) {
	instanceID, err := trimProviderPrefix("aws", id.ProviderID)
	if err != nil {
		return nil, err
	}

	out, err := a.ec2.GetConsoleOutput(ctx, &ec2.GetConsoleOutputInput{
		InstanceId: aws.String(instanceID),
		Latest:     aws.Bool(true),
	})
	if err != nil || aws.ToString(out.Output) == "" {
		if err != nil {
			a.logger.Debug("ec2 console output unavailable", zap.String("instance", instanceID), zap.Error(err))
		}
		return []string{"Logs not available yet. EC2 console output appears a few minutes after boot."}, nil
	}

	raw, err := base64.StdEncoding.DecodeString(aws.ToString(out.Output))
	if err != nil {
		return nil, fmt.Errorf("%w: console output: %w", domain.ErrMalformedResponse, err)
	}
	lines := strings.Split(strings.TrimRight(string(raw), "\n"), "\n")
	return tail(lines, logLimit(maxLines)), nil
}

func isInstanceNotFound(err error) bool {
	var apiErr smithy.APIError
	return errors.As(err, &apiErr) && apiErr.ErrorCode() == "InvalidInstanceID.NotFound"
}

// userData exports the plan environment and then runs the init script.
func userData(cfg domain.AgentConfig) string {
	keys := make([]string, 0, len(cfg.Env))
	for k := range cfg.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString("#!/bin/bash\n")
	for _, k := range keys {
		fmt.Fprintf(&b, "export %s=%s\n", k, shellQuote(cfg.Env[k]))
	}
	b.WriteString(strings.TrimPrefix(cfg.InitScript, "#!/bin/bash\n"))
	return b.String()
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'"'"'`) + "'"
}
