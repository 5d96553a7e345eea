package secrets

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
)

// AWSStore stores credential blobs in AWS Secrets Manager under
// "{prefix}/mailgate-user-{subject}-{provider}".
type AWSStore struct {
	client *secretsmanager.Client
	prefix string
}

func NewAWSStore(ctx context.Context, region, prefix string) (*AWSStore, error) {
	if region == "" {
		return nil, fmt.Errorf("AWS region is required for the aws secrets backend")
	}

	cfg, err := awsConfig.LoadDefaultConfig(ctx, awsConfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	return &AWSStore{
		client: secretsmanager.NewFromConfig(cfg),
		prefix: prefix,
	}, nil
}

func (s *AWSStore) secretID(subjectID, provider string) string {
	return fmt.Sprintf("%s/%s", s.prefix, secretName(subjectID, provider))
}

func (s *AWSStore) Get(ctx context.Context, subjectID, provider string) ([]byte, error) {
	out, err := s.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(s.secretID(subjectID, provider)),
	})
	if err != nil {
		if isAWSNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, &UnavailableError{Backend: "aws", Err: err}
	}

	return []byte(aws.ToString(out.SecretString)), nil
}

func (s *AWSStore) Put(ctx context.Context, subjectID, provider string, data []byte) error {
	id := s.secretID(subjectID, provider)

	_, err := s.client.DescribeSecret(ctx, &secretsmanager.DescribeSecretInput{
		SecretId: aws.String(id),
	})
	if err != nil {
		if !isAWSNotFound(err) {
			return &UnavailableError{Backend: "aws", Err: err}
		}

		_, err = s.client.CreateSecret(ctx, &secretsmanager.CreateSecretInput{
			Name:         aws.String(id),
			SecretString: aws.String(string(data)),
		})
		if err != nil {
			return &UnavailableError{Backend: "aws", Err: err}
		}
		return nil
	}

	_, err = s.client.UpdateSecret(ctx, &secretsmanager.UpdateSecretInput{
		SecretId:     aws.String(id),
		SecretString: aws.String(string(data)),
	})
	if err != nil {
		return &UnavailableError{Backend: "aws", Err: err}
	}

	return nil
}

func (s *AWSStore) Delete(ctx context.Context, subjectID, provider string) error {
	_, err := s.client.DeleteSecret(ctx, &secretsmanager.DeleteSecretInput{
		SecretId:                   aws.String(s.secretID(subjectID, provider)),
		ForceDeleteWithoutRecovery: aws.Bool(true),
	})
	if err != nil {
		if isAWSNotFound(err) {
			return nil
		}
		return &UnavailableError{Backend: "aws", Err: err}
	}
	return nil
}

func isAWSNotFound(err error) bool {
	var nf *types.ResourceNotFoundException
	return errors.As(err, &nf)
}
